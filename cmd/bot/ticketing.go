package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/thaiesports/ticketbot/pkg/dataaccess"
	"github.com/thaiesports/ticketbot/pkg/entities"
	"github.com/thaiesports/ticketbot/pkg/logging"
	"github.com/thaiesports/ticketbot/pkg/messages"
	"github.com/thaiesports/ticketbot/pkg/ticketing"
)

const (
	// TicketCategorySelectID is the ID of the panel's category select menu.
	TicketCategorySelectID = "ticket_category_select"

	// PauseTicketButtonID is the ID for the pause ticket button.
	PauseTicketButtonID = "pause_ticket"

	// UnpauseTicketButtonID is the ID for the unpause ticket button.
	UnpauseTicketButtonID = "unpause_ticket"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket"
)

const (
	// channelDeleteDelay is the grace period between closing a ticket and
	// deleting its channel, so participants can read the closing notice.
	channelDeleteDelay = 15 * time.Second

	// pausedWarningTTL is how long the paused warning stays before it is
	// removed again.
	pausedWarningTTL = 5 * time.Second

	// historyPageSize is the message page size used when generating
	// transcripts. 100 is the API maximum.
	historyPageSize = 100
)

// createTicketHandler handles a category selection on the panel and runs the
// full creation sequence through the coordinator.
func createTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	if i.Member == nil || i.Member.User == nil {
		return nil
	}
	owner := ticketing.Actor{ID: i.Member.User.ID, Name: i.Member.User.Username}

	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return respondSlashError(a, i)
	}
	categoryKey := values[0]

	if !a.AllowCreate(owner.ID) {
		return respondEphemeral(a, i, messages.ErrRateLimited)
	}

	// Channel creation can take a moment; acknowledge first.
	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error deferring interaction: %w", err)
	}

	factory := func(ctx context.Context, owner ticketing.Actor, category entities.Category, number int) (*ticketing.CreatedChannel, error) {
		channel, err := a.Session().GuildChannelCreateComplex(GuildId, discordgo.GuildChannelCreateData{
			Name:                 fmt.Sprintf("ticket-%d", number),
			Type:                 discordgo.ChannelTypeGuildText,
			Topic:                fmt.Sprintf("%s | opened by %s", category.Label, owner.Name),
			ParentID:             TicketCategoryId,
			PermissionOverwrites: ticketChannelOverwrites(a, owner.ID),
		})
		if err != nil {
			return nil, err
		}
		return &ticketing.CreatedChannel{ID: channel.ID, Name: channel.Name}, nil
	}

	ticket, err := a.Coordinator().CreateTicket(context.Background(), owner, categoryKey, factory)
	switch {
	case errors.Is(err, ticketing.ErrUnknownCategory):
		return editResponse(a, i, messages.ErrUserErrorProcessing)
	case errors.Is(err, ticketing.ErrOutsideOperatingHours):
		start, end := a.Coordinator().Schedule().Hours()
		return editResponse(a, i, fmt.Sprintf("%s Operating hours are %02d:00-%02d:00 (%s).", messages.ErrOutsideHours, start, end, ScheduleTimezone))
	case errors.Is(err, ticketing.ErrDuplicateActiveTicket):
		msg := messages.ErrDuplicateTicket
		if existing := a.Coordinator().TicketByOwner(owner.ID); existing != nil {
			msg = fmt.Sprintf("%s <#%s>", messages.ErrDuplicateTicket, existing.ChannelID)
		}
		return editResponse(a, i, msg)
	case errors.Is(err, ticketing.ErrTicketLimitReached):
		return editResponse(a, i, messages.ErrTicketLimit)
	case err != nil:
		cce := new(ticketing.ChannelCreationError)
		if errors.As(err, &cce) {
			a.Log().Error("Error creating ticket channel",
				slog.String(logging.KeyUser, owner.ID),
				slog.String(logging.KeyCategory, categoryKey),
				slog.String(logging.KeyError, cce.Error()),
			)
			return editResponse(a, i, messages.ErrCreateFailed)
		}
		return fmt.Errorf("error creating ticket: %w", err)
	}

	TotalTicketsCreated.WithLabelValues(categoryKey).Inc()
	OpenTickets.Set(float64(a.Coordinator().Stats().ActiveTickets))

	go func() {
		if err := setupTicketChannel(a, ticket); err != nil {
			a.Log().Error("Error setting up ticket channel",
				slog.Int(logging.KeyTicket, ticket.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}()

	logTicketCreated(a, ticket)

	return editResponse(a, i, fmt.Sprintf("✅ สร้างตั๋วเรียบร้อยแล้ว! กรุณาไปที่ <#%s> เพื่อดำเนินการต่อ", ticket.ChannelID))
}

// ticketChannelOverwrites scopes a ticket channel to the owner, the staff role
// and the bot itself. Everyone else is denied.
func ticketChannelOverwrites(a IApp, ownerID string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:    GuildId,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: 0,
			Deny:  discordgo.PermissionAll,
		},
		// The owner of the ticket can see the ticket.
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		},
		// Add the staff role.
		{
			ID:    StaffRoleId,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionAllText,
			Deny:  discordgo.PermissionMentionEveryone,
		},
	}

	if a.Session().State != nil && a.Session().State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    a.Session().State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionAllText,
		})
	}

	return overwrites
}

// setupTicketChannel sends and pins the welcome message carrying the pause and
// close buttons, and records its ID on the live ticket.
func setupTicketChannel(a IApp, ticket *entities.Ticket) error {
	category, err := a.Coordinator().Categories().Get(ticket.Category)
	if err != nil {
		return fmt.Errorf("error resolving category: %w", err)
	}

	welcome := &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> <@&%s>", ticket.OwnerID, StaffRoleId),
		Embed: &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("%s %s", category.Emoji, category.Label),
			Description: fmt.Sprintf("สวัสดี <@%s>! 👋\n\nขอบคุณที่ติดต่อทีมงาน Thai Esports League\nโปรดอธิบายปัญหาหรือคำถามของคุณได้เลย", ticket.OwnerID),
			Color:       category.Color,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "📂 หมวดหมู่",
					Value:  category.Label,
					Inline: true,
				},
				{
					Name:   "👤 ผู้สร้าง",
					Value:  fmt.Sprintf("<@%s>", ticket.OwnerID),
					Inline: true,
				},
				{
					Name:   "\U0001F3AB หมายเลขตั๋ว",
					Value:  fmt.Sprintf("%d", ticket.TicketNumber),
					Inline: true,
				},
			},
			Footer: &discordgo.MessageEmbedFooter{
				Text: ticket.Name(),
			},
			Timestamp: ticket.CreatedAt.Time().Format(time.RFC3339),
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "⏸️ หยุดชั่วคราว",
						Style:    discordgo.SecondaryButton,
						Emoji:    discordgo.ComponentEmoji{},
						CustomID: PauseTicketButtonID,
					},
					discordgo.Button{
						Label:    "🔒 ปิดตั๋ว",
						Style:    discordgo.DangerButton,
						Emoji:    discordgo.ComponentEmoji{},
						CustomID: CloseTicketButtonID,
					},
				},
			},
		},
	}

	msg, err := a.Session().ChannelMessageSendComplex(ticket.ChannelID, welcome)
	if err != nil {
		return fmt.Errorf("error sending welcome message: %w", err)
	}

	if err := a.Session().ChannelMessagePin(ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error pinning welcome message: %w", err)
	}

	if err := a.Coordinator().SetWelcomeMessage(ticket.ChannelID, msg.ID); err != nil {
		// The ticket closed before the welcome message landed.
		return nil
	}

	// Mirror the record again now that the welcome message ID is known.
	if live := a.Coordinator().TicketByChannel(ticket.ChannelID); live != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.TicketDal().SaveTicket(ctx, live); err != nil && !errors.Is(err, dataaccess.ErrNoDatabase) {
			a.Log().Warn("Error mirroring ticket",
				slog.Int(logging.KeyTicket, live.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}

	return nil
}

// pauseTicketHandler pauses the ticket and revokes the owner's send
// permission on the channel.
func pauseTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !isStaff(i) {
		return respondEphemeral(a, i, messages.ErrNotStaff)
	}
	actor := ticketing.Actor{ID: i.Member.User.ID, Name: i.Member.User.Username}

	ticket, err := a.Coordinator().PauseTicket(i.ChannelID, actor)
	switch {
	case errors.Is(err, ticketing.ErrTicketNotFound):
		return respondEphemeral(a, i, messages.ErrTicketNotFound)
	case errors.Is(err, ticketing.ErrAlreadyPaused):
		return respondEphemeral(a, i, messages.ErrAlreadyPaused)
	case err != nil:
		return fmt.Errorf("error pausing ticket: %w", err)
	}

	if err := a.Session().ChannelPermissionSet(i.ChannelID, ticket.OwnerID, discordgo.PermissionOverwriteTypeMember,
		discordgo.PermissionViewChannel|discordgo.PermissionReadMessageHistory,
		discordgo.PermissionSendMessages,
	); err != nil {
		// State already flipped; the message handler still enforces the pause.
		a.Log().Error("Error revoking send permission",
			slog.Int(logging.KeyTicket, ticket.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	swapWelcomeButtons(a, ticket, true)

	return respond(a, i, fmt.Sprintf("⏸️ Ticket paused by <@%s>. The owner cannot send messages until it is resumed.", actor.ID))
}

// unpauseTicketHandler resumes the ticket and restores the owner's send
// permission.
func unpauseTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !isStaff(i) {
		return respondEphemeral(a, i, messages.ErrNotStaff)
	}
	actor := ticketing.Actor{ID: i.Member.User.ID, Name: i.Member.User.Username}

	ticket, err := a.Coordinator().UnpauseTicket(i.ChannelID, actor)
	switch {
	case errors.Is(err, ticketing.ErrTicketNotFound):
		return respondEphemeral(a, i, messages.ErrTicketNotFound)
	case errors.Is(err, ticketing.ErrNotPaused):
		return respondEphemeral(a, i, messages.ErrNotPaused)
	case err != nil:
		return fmt.Errorf("error unpausing ticket: %w", err)
	}

	if err := a.Session().ChannelPermissionSet(i.ChannelID, ticket.OwnerID, discordgo.PermissionOverwriteTypeMember,
		discordgo.PermissionAllText,
		discordgo.PermissionMentionEveryone,
	); err != nil {
		a.Log().Error("Error restoring send permission",
			slog.Int(logging.KeyTicket, ticket.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	swapWelcomeButtons(a, ticket, false)

	return respond(a, i, fmt.Sprintf("▶️ Ticket resumed by <@%s>.", actor.ID))
}

// swapWelcomeButtons rewrites the welcome message's buttons so a paused
// ticket offers unpause instead of pause. Best effort.
func swapWelcomeButtons(a IApp, ticket *entities.Ticket, paused bool) {
	if ticket.WelcomeMessageID == "" {
		return
	}

	pauseButton := discordgo.Button{
		Label:    "⏸️ หยุดชั่วคราว",
		Style:    discordgo.SecondaryButton,
		Emoji:    discordgo.ComponentEmoji{},
		CustomID: PauseTicketButtonID,
	}
	if paused {
		pauseButton = discordgo.Button{
			Label:    "▶️ ดำเนินการต่อ",
			Style:    discordgo.SuccessButton,
			Emoji:    discordgo.ComponentEmoji{},
			CustomID: UnpauseTicketButtonID,
		}
	}

	if _, err := a.Session().ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: ticket.ChannelID,
		ID:      ticket.WelcomeMessageID,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					pauseButton,
					discordgo.Button{
						Label:    "🔒 ปิดตั๋ว",
						Style:    discordgo.DangerButton,
						Emoji:    discordgo.ComponentEmoji{},
						CustomID: CloseTicketButtonID,
					},
				},
			},
		},
	}); err != nil {
		a.Log().Warn("Error updating welcome buttons",
			slog.Int(logging.KeyTicket, ticket.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// closeTicketHandler closes the ticket from its button.
func closeTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	return closeTicketFromChannel(a, i)
}

// closeTicketFromChannel runs the close sequence for the ticket of the
// current channel: transcript, archive, audit log, then deferred channel
// deletion. Shared between the close button and the force-close sub command.
func closeTicketFromChannel(a IApp, i *discordgo.InteractionCreate) error {
	actor := ticketing.Actor{ID: i.Member.User.ID, Name: i.Member.User.Username}

	ticket := a.Coordinator().TicketByChannel(i.ChannelID)
	if ticket == nil {
		return respondEphemeral(a, i, messages.ErrNotTicketChannel)
	}
	if !isStaff(i) && actor.ID != ticket.OwnerID {
		return respondEphemeral(a, i, messages.ErrNotStaff)
	}

	// Announce before the history walk; transcripts can take a moment.
	if err := respond(a, i, messages.ClosingTicket); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	result, err := a.Coordinator().CloseTicket(context.Background(), i.ChannelID, actor, newHistoryReader(a.Session()))
	if errors.Is(err, ticketing.ErrTicketNotFound) {
		// Raced with another close; that close owns the teardown.
		return nil
	} else if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	TotalTicketsClosed.Inc()
	OpenTickets.Set(float64(a.Coordinator().Stats().ActiveTickets))

	transcriptURL := ""
	if !result.TranscriptFailed() {
		name := result.Transcript.Filename(result.Ticket.TicketNumber)

		url, err := a.Transcripts().Save(name, result.Transcript.HTML)
		if err != nil {
			a.Log().Error("Error saving transcript",
				slog.Int(logging.KeyTicket, result.Ticket.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
		} else {
			transcriptURL = url

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := a.TicketDal().SaveTranscriptMeta(ctx, result.Ticket.TicketNumber, url, result.Transcript.MessageCount); err != nil && !errors.Is(err, dataaccess.ErrNoDatabase) {
					a.Log().Warn("Error saving transcript metadata",
						slog.Int(logging.KeyTicket, result.Ticket.TicketNumber),
						slog.String(logging.KeyError, err.Error()),
					)
				}
			}()
		}
	}

	logTicketClosed(a, result, transcriptURL)

	deleteChannelLater(a, result.Ticket.ChannelID, result.Ticket.TicketNumber)
	return nil
}

// deleteChannelLater deletes the ticket channel after the grace delay. A
// channel that is already gone is not an error.
func deleteChannelLater(a IApp, channelID string, ticketNumber int) {
	time.AfterFunc(channelDeleteDelay, func() {
		if _, err := a.Session().ChannelDelete(channelID); err != nil {
			er := new(discordgo.RESTError)
			if errors.As(err, &er) && er.Message != nil && er.Message.Code == discordgo.ErrCodeUnknownChannel {
				return
			}
			a.Log().Error("Error deleting ticket channel",
				slog.Int(logging.KeyTicket, ticketNumber),
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})
}

// messageCreateHandler enforces the paused state: messages from the owner of
// a paused ticket are removed and answered with a short-lived warning.
func messageCreateHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		ticket := a.Coordinator().TicketByChannel(m.ChannelID)
		if ticket == nil || !ticket.IsPaused() || m.Author.ID != ticket.OwnerID {
			return
		}

		if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			a.Log().Error("Error deleting message in paused ticket",
				slog.Int(logging.KeyTicket, ticket.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
			return
		}

		warning, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("<@%s> %s", ticket.OwnerID, messages.TicketPaused))
		if err != nil {
			a.Log().Error("Error sending paused warning",
				slog.Int(logging.KeyTicket, ticket.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
			return
		}

		time.AfterFunc(pausedWarningTTL, func() {
			if err := s.ChannelMessageDelete(m.ChannelID, warning.ID); err != nil {
				a.Log().Debug("Error deleting paused warning",
					slog.String(logging.KeyError, err.Error()),
				)
			}
		})
	}
}

// sessionHistoryReader adapts the session's message history endpoint to the
// transcript generator's pager.
type sessionHistoryReader struct {
	s *discordgo.Session
}

func newHistoryReader(s *discordgo.Session) ticketing.HistoryReader {
	return &sessionHistoryReader{s: s}
}

func (r *sessionHistoryReader) FetchPage(ctx context.Context, channelID, beforeID string) ([]ticketing.HistoryMessage, error) {
	msgs, err := r.s.ChannelMessages(channelID, historyPageSize, beforeID, "", "")
	if err != nil {
		return nil, fmt.Errorf("error fetching channel messages: %w", err)
	}

	out := make([]ticketing.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		hm := ticketing.HistoryMessage{
			ID:      m.ID,
			System:  m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply,
			SentAt:  m.Timestamp,
			Content: m.Content,
		}
		if m.Author != nil {
			hm.AuthorID = m.Author.ID
			hm.AuthorName = m.Author.Username
			hm.Bot = m.Author.Bot
		}
		for _, e := range m.Embeds {
			hm.Embeds = append(hm.Embeds, ticketing.HistoryEmbed{
				Title:       e.Title,
				Description: e.Description,
			})
		}
		for _, at := range m.Attachments {
			hm.Attachments = append(hm.Attachments, ticketing.HistoryAttachment{
				Name: at.Filename,
				URL:  at.URL,
			})
		}
		out = append(out, hm)
	}
	return out, nil
}

func logTicketCreated(a IApp, ticket *entities.Ticket) {
	if LogChannelId == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "📝 ตั๋วใหม่ถูกสร้าง",
		Color: 0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "👤 ผู้สร้าง",
				Value:  fmt.Sprintf("%s (<@%s>)", ticket.OwnerName, ticket.OwnerID),
				Inline: true,
			},
			{
				Name:   "📂 หมวดหมู่",
				Value:  a.Coordinator().Categories().Label(ticket.Category),
				Inline: true,
			},
			{
				Name:   "\U0001F3F7️ ห้อง",
				Value:  fmt.Sprintf("<#%s>", ticket.ChannelID),
				Inline: true,
			},
		},
		Timestamp: ticket.CreatedAt.Time().Format(time.RFC3339),
	}

	if _, err := a.Session().ChannelMessageSendEmbed(LogChannelId, embed); err != nil {
		a.Log().Warn("Error sending creation log",
			slog.Int(logging.KeyTicket, ticket.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func logTicketClosed(a IApp, result *ticketing.CloseResult, transcriptURL string) {
	if LogChannelId == "" {
		return
	}

	ticket := result.Ticket

	transcriptValue := "ไม่สามารถสร้างสำเนาบทสนทนาได้"
	if transcriptURL != "" {
		transcriptValue = fmt.Sprintf("[%s](%s) (%d messages)", ticket.Name(), transcriptURL, result.Transcript.MessageCount)
	}

	embed := &discordgo.MessageEmbed{
		Title: "🔒 ตั๋วถูกปิด",
		Color: 0xff6b6b,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "\U0001F3AB ตั๋ว",
				Value:  ticket.Name(),
				Inline: true,
			},
			{
				Name:   "👤 เจ้าของ",
				Value:  fmt.Sprintf("%s (<@%s>)", ticket.OwnerName, ticket.OwnerID),
				Inline: true,
			},
			{
				Name:   "🔒 ปิดโดย",
				Value:  fmt.Sprintf("<@%s>", ticket.ClosedBy),
				Inline: true,
			},
			{
				Name:   "📄 สำเนาบทสนทนา",
				Value:  transcriptValue,
				Inline: false,
			},
		},
		Timestamp: ticket.ClosedAt.Time().Format(time.RFC3339),
	}

	if _, err := a.Session().ChannelMessageSendEmbed(LogChannelId, embed); err != nil {
		a.Log().Warn("Error sending close log",
			slog.Int(logging.KeyTicket, ticket.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
