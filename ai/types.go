package ai

// EntityTypes defines the valid categories for extracted entities.
// These types are used by entity taggers to classify named entities.
var EntityTypes = []string{
	"event",
	"organization",
	"person",
	"place",
	"product",
}

// Categories defines the valid news categories used for classification
// and search filtering.
var Categories = []string{
	"Politics",
	"Finance",
	"Social",
	"International",
	"Sports",
	"Tech",
	"Health",
	"General",
}
