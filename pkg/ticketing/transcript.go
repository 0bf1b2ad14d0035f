package ticketing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"
)

// HistoryMessage is one message from the channel history, as supplied by the
// gateway collaborator.
type HistoryMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Bot         bool
	System      bool
	SentAt      time.Time
	Content     string
	Embeds      []HistoryEmbed
	Attachments []HistoryAttachment
}

// HistoryEmbed is the structured content of a message embed.
type HistoryEmbed struct {
	Title       string
	Description string
}

// HistoryAttachment is a file reference attached to a message.
type HistoryAttachment struct {
	Name string
	URL  string
}

// HistoryReader pages through a channel's message history. Pages arrive in
// reverse-chronological batches; an empty page terminates paging. The
// generator is responsible for final ordering.
type HistoryReader interface {
	FetchPage(ctx context.Context, channelID, beforeID string) ([]HistoryMessage, error)
}

// TranscriptMeta is the ticket context embedded in the generated document.
type TranscriptMeta struct {
	TicketNumber  int
	CategoryLabel string
	CategoryEmoji string
	ChannelName   string
	CreatedAt     time.Time
}

// Transcript is a generated archival document.
type Transcript struct {
	HTML         []byte
	MessageCount int
	GeneratedAt  time.Time
}

// Filename returns the stable document name for the transcript, keyed by
// ticket number and generation date.
func (t *Transcript) Filename(ticketNumber int) string {
	return fmt.Sprintf("transcript-%d-%s.html", ticketNumber, t.GeneratedAt.UTC().Format("2006-01-02"))
}

// Generator renders a channel's full message history into one self-contained
// HTML document. All user-supplied text goes through html/template escaping.
type Generator struct {
	tmpl *template.Template
}

// NewGenerator builds a transcript generator.
func NewGenerator() *Generator {
	return &Generator{
		tmpl: template.Must(template.New("transcript").Parse(transcriptTemplate)),
	}
}

// Generate pages the full history of the channel and renders the transcript.
// Any paging failure discards partial results and returns ErrHistoryFetchFailed;
// a channel with zero messages yields a valid empty transcript.
func (g *Generator) Generate(ctx context.Context, reader HistoryReader, channelID string, meta TranscriptMeta) (*Transcript, error) {
	var messages []HistoryMessage
	beforeID := ""

	for {
		page, err := reader.FetchPage(ctx, channelID, beforeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHistoryFetchFailed, err)
		}
		if len(page) == 0 {
			break
		}

		messages = append(messages, page...)

		// Pages are newest first; the last entry is the oldest seen so far.
		beforeID = page[len(page)-1].ID
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	now := time.Now().UTC()

	data := transcriptData{
		TicketNumber:  meta.TicketNumber,
		ChannelName:   meta.ChannelName,
		CategoryLabel: meta.CategoryLabel,
		CategoryEmoji: meta.CategoryEmoji,
		CreatedAt:     meta.CreatedAt.UTC().Format(time.RFC1123),
		GeneratedAt:   now.Format(time.RFC1123),
		MessageCount:  len(messages),
	}
	for _, m := range messages {
		tm := transcriptMessage{
			AuthorInitial: authorInitial(m.AuthorName),
			AuthorName:    m.AuthorName,
			Bot:           m.Bot,
			System:        m.System,
			SentAt:        m.SentAt.UTC().Format(time.RFC1123),
			Content:       m.Content,
		}
		for _, e := range m.Embeds {
			tm.Embeds = append(tm.Embeds, transcriptEmbed{Title: e.Title, Description: e.Description})
		}
		for _, at := range m.Attachments {
			tm.Attachments = append(tm.Attachments, transcriptAttachment{Name: at.Name, URL: at.URL})
		}
		data.Messages = append(data.Messages, tm)
	}

	buf := new(bytes.Buffer)
	if err := g.tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("error rendering transcript: %w", err)
	}

	return &Transcript{
		HTML:         buf.Bytes(),
		MessageCount: len(messages),
		GeneratedAt:  now,
	}, nil
}

func authorInitial(name string) string {
	for _, r := range name {
		return string(r)
	}
	return "?"
}

type transcriptData struct {
	TicketNumber  int
	ChannelName   string
	CategoryLabel string
	CategoryEmoji string
	CreatedAt     string
	GeneratedAt   string
	MessageCount  int
	Messages      []transcriptMessage
}

type transcriptMessage struct {
	AuthorInitial string
	AuthorName    string
	Bot           bool
	System        bool
	SentAt        string
	Content       string
	Embeds        []transcriptEmbed
	Attachments   []transcriptAttachment
}

type transcriptEmbed struct {
	Title       string
	Description string
}

type transcriptAttachment struct {
	Name string
	URL  string
}

const transcriptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Ticket #{{.TicketNumber}} Transcript</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #36393f; color: #dcddde; margin: 0; padding: 20px; line-height: 1.6; }
.container { max-width: 800px; margin: 0 auto; background: #2f3136; border-radius: 8px; overflow: hidden; }
.header { background: #5865f2; padding: 20px; text-align: center; }
.header h1 { margin: 0; color: white; }
.ticket-info { background: #40444b; padding: 15px 20px; border-bottom: 1px solid #484b51; }
.ticket-info div { margin: 5px 0; }
.ticket-number { font-size: 1.2em; font-weight: bold; color: #5865f2; margin-bottom: 10px; }
.messages { padding: 20px; }
.message { margin-bottom: 20px; padding: 10px 15px; background: #40444b; border-radius: 8px; border-left: 4px solid #5865f2; }
.message-header { display: flex; align-items: center; margin-bottom: 8px; }
.avatar { width: 32px; height: 32px; border-radius: 50%; margin-right: 12px; background: #5865f2; display: flex; align-items: center; justify-content: center; font-weight: bold; color: white; }
.username { font-weight: 600; color: #ffffff; margin-right: 8px; }
.timestamp { color: #72767d; font-size: 12px; }
.message-content { color: #dcddde; word-wrap: break-word; white-space: pre-wrap; }
.embed { border-left: 4px solid #5865f2; background: #2f3136; margin: 10px 0; padding: 12px; border-radius: 4px; }
.embed-title { font-weight: 600; color: #ffffff; margin-bottom: 8px; }
.embed-description { color: #dcddde; margin-bottom: 8px; white-space: pre-wrap; }
.attachment { background: #40444b; padding: 8px 12px; margin: 8px 0; border-radius: 4px; }
.attachment a { color: #00aff4; }
.system-message { border-left-color: #faa61a; }
.footer { background: #40444b; padding: 15px 20px; text-align: center; color: #72767d; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>Ticket Transcript</h1></div>
<div class="ticket-info">
<div class="ticket-number">Ticket #{{.TicketNumber}}</div>
<div><strong>Channel:</strong> #{{.ChannelName}}</div>
<div><strong>Category:</strong> {{.CategoryLabel}} {{.CategoryEmoji}}</div>
<div><strong>Created:</strong> {{.CreatedAt}}</div>
<div><strong>Total Messages:</strong> {{.MessageCount}}</div>
<div><strong>Generated:</strong> {{.GeneratedAt}}</div>
</div>
<div class="messages">
{{- range .Messages}}
<div class="message{{if .System}} system-message{{end}}">
<div class="message-header">
<div class="avatar">{{.AuthorInitial}}</div>
<span class="username">{{.AuthorName}}{{if .Bot}} (Bot){{end}}</span>
<span class="timestamp">{{.SentAt}}</span>
</div>
<div class="message-content">{{- if .Content}}<div>{{.Content}}</div>{{end}}
{{- range .Embeds}}
<div class="embed">{{if .Title}}<div class="embed-title">{{.Title}}</div>{{end}}{{if .Description}}<div class="embed-description">{{.Description}}</div>{{end}}</div>
{{- end}}
{{- range .Attachments}}
<div class="attachment"><a href="{{.URL}}" target="_blank">{{.Name}}</a></div>
{{- end}}
</div>
</div>
{{- end}}
</div>
<div class="footer">Ticket #{{.TicketNumber}} - generated {{.GeneratedAt}}</div>
</div>
</body>
</html>
`
