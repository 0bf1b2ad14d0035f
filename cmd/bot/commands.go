package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/thaiesports/ticketbot/pkg/messages"
)

const (
	// SetupCmdName is the command that posts the ticket panel.
	SetupCmdName = "setup"

	// TicketCmdName is the command for operating tickets.
	TicketCmdName = "ticket"

	// StatsCmdName is the sub command showing live ticket statistics.
	StatsCmdName = "stats"

	// ForceCloseCmdName is the sub command for closing a ticket from inside
	// its channel without the button.
	ForceCloseCmdName = "force-close"

	// ResetCountersCmdName is the sub command rewinding the ticket counters.
	ResetCountersCmdName = "reset-counters"

	// CleanTranscriptsCmdName is the sub command removing old transcripts.
	CleanTranscriptsCmdName = "clean-transcripts"
)

var (
	// setupCmd posts the category select-menu panel into the current channel.
	setupCmd = &discordgo.ApplicationCommand{
		Name:        SetupCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "Posts the ticket panel into this channel.",
	}

	// ticketCmd is the command for operating tickets.
	ticketCmd = &discordgo.ApplicationCommand{
		Name:        TicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for operating tickets.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        StatsCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Shows the live ticket and counter statistics.",
			},
			{
				Name:        ForceCloseCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Closes the ticket for the channel that the command was executed in.",
			},
			{
				Name:        ResetCountersCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Rewinds every category counter to its base.",
			},
			{
				Name:        CleanTranscriptsCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Deletes saved transcripts older than the given number of days.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "days",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "Transcripts older than this many days are deleted.",
						Required:    true,
					},
				},
			},
		},
	}
)

// setupHandler posts the ticket panel with the category select menu.
func setupHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !isAdmin(i) {
		return respondEphemeral(a, i, messages.ErrNotAdmin)
	}

	options := make([]discordgo.SelectMenuOption, 0, len(a.Coordinator().Categories().All()))
	for _, c := range a.Coordinator().Categories().All() {
		options = append(options, discordgo.SelectMenuOption{
			Label:       c.Label,
			Value:       c.Key,
			Description: c.Description,
			Emoji:       discordgo.ComponentEmoji{Name: c.Emoji},
		})
	}

	panel := &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       "\U0001F3AB Thai Esports League Support",
			Description: "ต้องการความช่วยเหลือ? เลือกหมวดหมู่ด้านล่างเพื่อเปิดตั๋วติดต่อทีมงาน",
			Color:       0x00ff00,
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						CustomID:    TicketCategorySelectID,
						Placeholder: "เลือกหมวดหมู่ที่ต้องการติดต่อ",
						Options:     options,
					},
				},
			},
		},
	}

	if _, err := a.Session().ChannelMessageSendComplex(i.ChannelID, panel); err != nil {
		return fmt.Errorf("error sending ticket panel: %w", err)
	}

	return respondEphemeral(a, i, "Ticket panel posted.")
}

// ticketCommandHandler dispatches the ticket sub commands.
func ticketCommandHandler(a IApp, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return respondSlashError(a, i)
	}
	sub := data.Options[0]

	switch sub.Name {
	case StatsCmdName:
		return statsHandler(a, i)
	case ForceCloseCmdName:
		if !isAdmin(i) {
			return respondEphemeral(a, i, messages.ErrNotAdmin)
		}
		return closeTicketFromChannel(a, i)
	case ResetCountersCmdName:
		if !isAdmin(i) {
			return respondEphemeral(a, i, messages.ErrNotAdmin)
		}
		if err := a.Coordinator().ResetCounters(context.Background()); err != nil {
			return fmt.Errorf("error resetting counters: %w", err)
		}
		return respondEphemeral(a, i, "Ticket counters have been reset to their bases.")
	case CleanTranscriptsCmdName:
		if !isAdmin(i) {
			return respondEphemeral(a, i, messages.ErrNotAdmin)
		}
		if len(sub.Options) == 0 {
			return respondSlashError(a, i)
		}
		days := int(sub.Options[0].IntValue())
		removed, err := a.Transcripts().CleanOlderThan(days)
		if err != nil {
			return fmt.Errorf("error cleaning transcripts: %w", err)
		}
		return respondEphemeral(a, i, fmt.Sprintf("Removed %d transcript(s) older than %d day(s).", removed, days))
	default:
		return respondSlashError(a, i)
	}
}

func statsHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !isStaff(i) {
		return respondEphemeral(a, i, messages.ErrNotStaff)
	}

	stats := a.Coordinator().Stats()

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Open tickets",
			Value:  strconv.Itoa(stats.ActiveTickets),
			Inline: false,
		},
	}
	for _, c := range a.Coordinator().Categories().All() {
		counters := stats.Counters[c.Key]
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s %s", c.Emoji, c.Label),
			Value:  fmt.Sprintf("open %d | issued %d | next %d", stats.ByCategory[c.Key], counters.Issued, counters.Next),
			Inline: false,
		})
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:  "\U0001F4CA Ticket statistics",
					Color:  0x3498db,
					Fields: fields,
				},
			},
		},
	})
}
