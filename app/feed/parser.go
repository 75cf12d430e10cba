package feed

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

var DefaultLanguages = []string{"no", "en"}

// XMLTV timestamps are "YYYYMMDDhhmmss +zzzz"; providers vary the zone spelling.
var xmltvZonedLayouts = []string{
	"20060102150405 -0700",
	"20060102150405 -07:00",
	"20060102150405-0700",
	time.RFC3339,
}

var xmltvLocalLayouts = []string{
	"20060102150405",
	"200601021504",
}

type Parser struct {
	mode      Mode
	languages []string
	location  *time.Location
}

// NewParser creates a parser for payloads of the given mode. Text fields are
// picked by the first language in languages that has a non-empty value, and
// all timestamps are converted to location.
func NewParser(mode Mode, languages []string, location *time.Location) *Parser {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if location == nil {
		location = time.Local
	}

	return &Parser{
		mode:      mode,
		languages: languages,
		location:  location,
	}
}

func (p *Parser) Run(payload []byte, entry catalog.Entry, key Key) (*Result, error) {
	var (
		programmes []Programme
		err        error
	)

	switch p.mode {
	case ModeXML:
		programmes, err = p.parseXML(payload)
	case ModeJSON:
		programmes, err = p.parseJSON(payload)
	default:
		err = fmt.Errorf("unsupported feed mode '%s'", p.mode)
	}
	if err != nil {
		return nil, &ParseError{Key: key, Channel: entry.DisplayName, Err: err}
	}

	result := &Result{Programmes: make([]Programme, 0, len(programmes))}
	for _, programme := range programmes {
		programme.Channel = entry.DisplayName

		if err := programme.Validate(); err != nil {
			slog.Warn("Dropping programme", "channel", entry.DisplayName, "key", key.String(),
				"start", programme.Start, "title", programme.Title, "reason", err)
			result.Dropped++
			continue
		}
		result.Programmes = append(result.Programmes, programme)
	}

	return result, nil
}

type xmlText struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type xmlProgramme struct {
	Start        string    `xml:"start,attr"`
	Stop         string    `xml:"stop,attr"`
	Titles       []xmlText `xml:"title"`
	Descriptions []xmlText `xml:"desc"`
}

func (p *Parser) parseXML(payload []byte) ([]Programme, error) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.CharsetReader = charsetReader

	var (
		programmes []Programme
		sawRoot    bool
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		el, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		if el.Name.Local != "programme" {
			continue
		}

		var raw xmlProgramme
		if err := decoder.DecodeElement(&raw, &el); err != nil {
			return nil, fmt.Errorf("malformed programme element: %w", err)
		}

		start, err := p.parseXMLTVTime(raw.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid programme start: %w", err)
		}
		stop, err := p.parseXMLTVTime(raw.Stop)
		if err != nil {
			return nil, fmt.Errorf("invalid programme stop: %w", err)
		}

		programmes = append(programmes, Programme{
			Start:       start,
			Stop:        stop,
			Title:       p.selectXMLText(raw.Titles),
			Description: p.selectXMLText(raw.Descriptions),
		})
	}

	if !sawRoot {
		return nil, errors.New("document has no root element")
	}

	return programmes, nil
}

func (p *Parser) parseXMLTVTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("timestamp is missing")
	}

	for _, layout := range xmltvZonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(p.location), nil
		}
	}
	for _, layout := range xmltvLocalLayouts {
		if t, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp '%s'", value)
}

// selectXMLText applies the language preference and falls back to the first
// non-empty element, since many XMLTV feeds omit the lang attribute.
func (p *Parser) selectXMLText(texts []xmlText) string {
	for _, lang := range p.languages {
		for _, text := range texts {
			if strings.EqualFold(text.Lang, lang) {
				if value := normalizeText(text.Value); value != "" {
					return value
				}
			}
		}
	}

	for _, text := range texts {
		if value := normalizeText(text.Value); value != "" {
			return value
		}
	}

	return ""
}

type jsonDocument struct {
	JSONTV *struct {
		Programme []jsonProgramme `json:"programme"`
	} `json:"jsontv"`
}

type jsonProgramme struct {
	Start *epochSeconds     `json:"start"`
	Stop  *epochSeconds     `json:"stop"`
	Title map[string]string `json:"title"`
	Desc  map[string]string `json:"desc"`
}

// epochSeconds accepts Unix seconds encoded either as a JSON number or a string.
type epochSeconds int64

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return fmt.Errorf("empty epoch timestamp")
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*e = epochSeconds(n)
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch timestamp %s: %w", raw, err)
	}
	*e = epochSeconds(int64(f))
	return nil
}

func (p *Parser) parseJSON(payload []byte) ([]Programme, error) {
	var doc jsonDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if doc.JSONTV == nil {
		return nil, errors.New("document has no jsontv object")
	}

	programmes := make([]Programme, 0, len(doc.JSONTV.Programme))
	for i, raw := range doc.JSONTV.Programme {
		if raw.Start == nil || raw.Stop == nil {
			return nil, fmt.Errorf("programme %d is missing start or stop", i)
		}

		programmes = append(programmes, Programme{
			Start:       time.Unix(int64(*raw.Start), 0).In(p.location),
			Stop:        time.Unix(int64(*raw.Stop), 0).In(p.location),
			Title:       p.selectText(raw.Title),
			Description: p.selectText(raw.Desc),
		})
	}

	return programmes, nil
}

// selectText returns the first non-empty value in preference order, or "".
func (p *Parser) selectText(texts map[string]string) string {
	for _, lang := range p.languages {
		if value := normalizeText(texts[lang]); value != "" {
			return value
		}
	}
	return ""
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset '%s': %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
