package domain

import "strings"

// Audio is an uploaded voice recording. Filename is optional and only used to
// hint the container format to the transcriber.
type Audio struct {
	Data     []byte
	Filename string
}

// Query is a single triage request as received from the caller.
type Query struct {
	Text  string
	Audio *Audio
}

func NewTextQuery(text string) Query {
	return Query{Text: text}
}

func (q Query) HasText() bool {
	return strings.TrimSpace(q.Text) != ""
}

func (q Query) HasAudio() bool {
	return q.Audio != nil && len(q.Audio.Data) > 0
}

// QuerySource reports where the effective query text came from.
type QuerySource string

const (
	QuerySourceText  QuerySource = "text"
	QuerySourceAudio QuerySource = "audio"
)
