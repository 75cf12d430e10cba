package database

import (
	"context"
	"time"
)

type ProgrammeStore interface {
	ReplaceChannelProgrammes(ctx context.Context, channel string, programmes []Programme) (int, error)
	ListChannelProgrammes(ctx context.Context, channel string, from time.Time, limit int) ([]Programme, error)
	CountChannelProgrammes(ctx context.Context, channel string) (int, error)
}
