package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lysyi3m/epgfetch/app/database"
)

type listCommand struct {
	app     *application
	Channel string     `long:"channel" required:"true" description:"Channel display name"`
	Limit   int        `long:"limit" default:"20" description:"Maximum number of programmes; 0 lists all"`
	All     bool       `long:"all" description:"Include programmes that have already ended"`
	Args    configArgs `positional-args:"yes"`
}

func (c *listCommand) Execute(_ []string) error {
	config, err := c.app.load(c.Args.Config)
	if err != nil {
		return err
	}
	if err := config.ValidateStore(); err != nil {
		return err
	}

	db, err := c.app.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	from := time.Now().In(config.Location).Add(-12 * time.Hour)
	if c.All {
		from = time.Time{}
	}

	programmes, err := database.NewProgrammeRepository(db, config.Location).
		ListChannelProgrammes(c.app.ctx, c.Channel, from, c.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, p := range programmes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Start.Format("2006-01-02 15:04"), p.Stop.Format("15:04"), p.Title)
	}
	return w.Flush()
}
