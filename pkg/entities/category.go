package entities

// Category is one row of the static ticket category table. The table is
// configuration supplied at construction time; it is not user-extensible at
// runtime.
type Category struct {
	// Key is the stable identifier, e.g. "member_edit".
	Key string `json:"key" bson:"key"`

	// Ordinal is the 1-based position that namespaces the ticket numbers:
	// ordinal k owns the range k*1000+1 upwards.
	Ordinal int `json:"ordinal" bson:"ordinal"`

	// Label is the human readable name shown in menus and transcripts.
	Label string `json:"label" bson:"label"`

	// Emoji decorates the select menu entry.
	Emoji string `json:"emoji" bson:"emoji"`

	// Description is the select menu entry description.
	Description string `json:"description" bson:"description"`

	// Color is the embed accent colour for tickets of this category.
	Color int `json:"color" bson:"color"`
}

// Base returns the first value of the category's number range minus one; the
// first ticket issued for the category is Base()+1.
func (c Category) Base() int {
	return c.Ordinal * 1000
}
