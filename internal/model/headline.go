package model

// Headline is a single news item returned by a topic lookup
type Headline struct {
	Title string
	URL   string
}
