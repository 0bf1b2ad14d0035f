package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/thaiesports/ticketbot/pkg/dataaccess"
	"github.com/thaiesports/ticketbot/pkg/dataaccess/connection"
	"github.com/thaiesports/ticketbot/pkg/entities"
	"github.com/thaiesports/ticketbot/pkg/logging"
)

const (
	// AppName is the name of the application.
	AppName = "ticketbot"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvGuildId is the environment variable for the guild the bot serves.
	EnvGuildId = `GUILD_ID`

	// EnvStaffRoleId is the environment variable for the staff role.
	EnvStaffRoleId = `STAFF_ROLE_ID`

	// EnvTicketCategoryId is the environment variable for the channel category
	// that ticket channels are created under.
	EnvTicketCategoryId = `TICKET_CATEGORY_ID`

	// EnvLogChannelId is the environment variable for the audit log channel.
	EnvLogChannelId = `LOG_CHANNEL_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvTranscriptDir is the environment variable for the transcript directory.
	EnvTranscriptDir = `TRANSCRIPT_DIR`

	// EnvTranscriptBaseUrl is the environment variable for the public base URL
	// that saved transcripts are served from.
	EnvTranscriptBaseUrl = `TRANSCRIPT_BASE_URL`

	// EnvMaxTicketsPerUser is the environment variable for the concurrent
	// ticket limit per user.
	EnvMaxTicketsPerUser = `MAX_TICKETS_PER_USER`

	// EnvScheduleStartHour is the environment variable for the opening hour.
	EnvScheduleStartHour = `SCHEDULE_START_HOUR`

	// EnvScheduleEndHour is the environment variable for the closing hour.
	EnvScheduleEndHour = `SCHEDULE_END_HOUR`

	// EnvScheduleTimezone is the environment variable for the schedule timezone.
	EnvScheduleTimezone = `SCHEDULE_TIMEZONE`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// GuildId is the guild the bot serves. The bot is single-guild.
	GuildId string

	// StaffRoleId is the role that can operate tickets.
	StaffRoleId string

	// TicketCategoryId is the channel category ticket channels are created
	// under. Optional; when empty, ticket channels are created at the top level.
	TicketCategoryId string

	// LogChannelId is the channel that receives audit embeds. Optional.
	LogChannelId string

	// MongoUri is the URI for the MongoDB database. Optional; without it the
	// bot runs with in-memory state only.
	MongoUri string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string

	// TranscriptDir is the directory transcripts are written to.
	TranscriptDir string

	// TranscriptBaseUrl is the public base URL transcripts are served from.
	TranscriptBaseUrl string

	// MaxTicketsPerUser is the concurrent ticket limit per user.
	MaxTicketsPerUser = 1

	// ScheduleStartHour is the hour (inclusive) ticket creation opens.
	ScheduleStartHour = 11

	// ScheduleEndHour is the hour (exclusive) ticket creation closes.
	ScheduleEndHour = 24

	// ScheduleTimezone is the IANA timezone the operating hours are read in.
	ScheduleTimezone = "Asia/Bangkok"
)

func parseConfig() {
	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		slog.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		slog.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envGuildId := os.Getenv(EnvGuildId); envGuildId != "" {
		slog.Debug("Found guild ID in environment", slog.String("key", EnvGuildId))
		GuildId = envGuildId
	}

	if envStaffRole := os.Getenv(EnvStaffRoleId); envStaffRole != "" {
		slog.Debug("Found staff role in environment", slog.String("key", EnvStaffRoleId))
		StaffRoleId = envStaffRole
	}

	TicketCategoryId = os.Getenv(EnvTicketCategoryId)
	LogChannelId = os.Getenv(EnvLogChannelId)

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		slog.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		slog.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		slog.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if envDir := os.Getenv(EnvTranscriptDir); envDir != "" {
		TranscriptDir = envDir
	} else {
		TranscriptDir = "transcripts"
	}

	if envBase := os.Getenv(EnvTranscriptBaseUrl); envBase != "" {
		TranscriptBaseUrl = envBase
	} else {
		TranscriptBaseUrl = "http://localhost:" + MonitoringPort + "/transcripts"
	}

	MaxTicketsPerUser = intFromEnv(EnvMaxTicketsPerUser, MaxTicketsPerUser)
	ScheduleStartHour = intFromEnv(EnvScheduleStartHour, ScheduleStartHour)
	ScheduleEndHour = intFromEnv(EnvScheduleEndHour, ScheduleEndHour)

	if envTz := os.Getenv(EnvScheduleTimezone); envTz != "" {
		ScheduleTimezone = envTz
	}

	if BotToken == "" ||
		ApplicationId == "" ||
		GuildId == "" ||
		StaffRoleId == "" {

		slog.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
		os.Exit(1)
	}

	if MongoUri != "" {
		connectMongo()
	} else {
		slog.Warn("No MongoDB URI provided, ticket records and counters will not survive a restart", slog.String("key", EnvMongoUri))
	}
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default",
			slog.String("key", key),
			slog.String(logging.KeyError, err.Error()),
		)
		return fallback
	}
	return v
}

func connectMongo() {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		slog.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		slog.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	slog.Debug("Connected to MongoDB", slog.String("key", EnvMongoUri))
}

// ticketCategories is the fixed category table. Ordinal k namespaces the
// ticket numbers to k*1000+1 upwards, so the order here is load-bearing.
func ticketCategories() []entities.Category {
	return []entities.Category{
		{
			Key:         "member_edit",
			Ordinal:     1,
			Label:       "การแก้ไขข้อมูลสมาชิก",
			Emoji:       "\U0001F464",
			Description: "แก้ไขข้อมูลส่วนตัว ชื่อผู้ใช้ หรือข้อมูลการสมัคร",
			Color:       0x3498db,
		},
		{
			Key:         "schedule_report",
			Ordinal:     2,
			Label:       "การแจ้งเกี่ยวกับเวลาการแข่ง",
			Emoji:       "⏰",
			Description: "สอบถามหรือแจ้งปัญหาเกี่ยวกับตารางการแข่งขัน",
			Color:       0xe74c3c,
		},
		{
			Key:         "behavior_report",
			Ordinal:     3,
			Label:       "ติดต่อรายงานพฤติกรรมนักแข่ง",
			Emoji:       "⚠️",
			Description: "รายงานพฤติกรรมที่ไม่เหมาะสมของนักแข่ง",
			Color:       0xf39c12,
		},
		{
			Key:         "technical_issue",
			Ordinal:     4,
			Label:       "แจ้งปัญหาทางเทคนิค",
			Emoji:       "\U0001F527",
			Description: "รายงานปัญหาเกม เซิร์ฟเวอร์ หรือปัญหาเทคนิคอื่นๆ",
			Color:       0x9b59b6,
		},
		{
			Key:         "general_contact",
			Ordinal:     5,
			Label:       "ติดต่อเรื่องอื่นๆ",
			Emoji:       "\U0001F4AC",
			Description: "สอบถามหรือติดต่อเรื่องทั่วไปอื่นๆ",
			Color:       0x2ecc71,
		},
	}
}
