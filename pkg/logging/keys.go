package logging

const (
	// KeyError is the logging key for errors.
	KeyError = `err`

	// KeyDal is the logging key for the data access layer in use.
	KeyDal = `dal`

	// KeyTicket is the logging key for a ticket number.
	KeyTicket = `ticket`

	// KeyChannel is the logging key for a discord channel ID.
	KeyChannel = `channel`

	// KeyUser is the logging key for a discord user ID.
	KeyUser = `user`

	// KeyCategory is the logging key for a ticket category.
	KeyCategory = `category`

	// KeySignal is the logging key for OS signals.
	KeySignal = `signal`
)
