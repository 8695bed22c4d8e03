// Package datasource decides where a roadmap page gets its data: a saved
// roadmap on the backend, a cached AI generation, or the built-in catalog.
// It also assembles the browse listing from the backend and local state.
package datasource

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceType identifies where a roadmap came from.
type SourceType string

const (
	// SourceSaved is a roadmap stored in the user's backend collection.
	SourceSaved SourceType = "saved"
	// SourceAI is a generation cached in the local session store.
	SourceAI SourceType = "ai"
	// SourceTopic is a predefined catalog roadmap.
	SourceTopic SourceType = "topic"
	// SourceNotFound is the empty placeholder.
	SourceNotFound SourceType = "not_found"
	// SourceFile is a roadmap read from a local file.
	SourceFile SourceType = "file"
)

// Priority values for source types (higher is tried first).
const (
	PrioritySaved    = 100
	PriorityAI       = 80
	PriorityTopic    = 50
	PriorityNotFound = 0
)

// Priority returns the resolution order weight of t.
func (t SourceType) Priority() int {
	switch t {
	case SourceSaved:
		return PrioritySaved
	case SourceAI:
		return PriorityAI
	case SourceTopic, SourceFile:
		return PriorityTopic
	default:
		return PriorityNotFound
	}
}

// Query is the parsed form of a roadmap page address.
type Query struct {
	Topic string
	Saved bool
	AI    bool
	ID    string
}

// ParseQuery reads "topic=", "saved=true&id=" and "ai=true&id=" from a raw
// query string. A leading "?" is allowed.
func ParseQuery(raw string) (Query, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Query{}, fmt.Errorf("parsing roadmap query: %w", err)
	}
	return FromValues(values), nil
}

// FromValues builds a Query from already parsed values.
func FromValues(v url.Values) Query {
	return Query{
		Topic: strings.TrimSpace(v.Get("topic")),
		Saved: v.Get("saved") == "true",
		AI:    v.Get("ai") == "true",
		ID:    strings.TrimSpace(v.Get("id")),
	}
}

// TopicQuery addresses a catalog roadmap.
func TopicQuery(slug string) Query { return Query{Topic: slug} }

// SavedQuery addresses a saved roadmap.
func SavedQuery(id string) Query { return Query{Saved: true, ID: id} }

// AIQuery addresses a cached generation.
func AIQuery(id string) Query { return Query{AI: true, ID: id} }

// Candidates lists the sources the query asks for, highest priority first.
// The not-found placeholder is always last.
func (q Query) Candidates() []SourceType {
	var out []SourceType
	if q.Saved && q.ID != "" {
		out = append(out, SourceSaved)
	}
	if q.AI && q.ID != "" {
		out = append(out, SourceAI)
	}
	if q.Topic != "" {
		out = append(out, SourceTopic)
	}
	return append(out, SourceNotFound)
}

// Values encodes the query.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if q.Saved {
		v.Set("saved", "true")
	}
	if q.AI {
		v.Set("ai", "true")
	}
	if q.ID != "" {
		v.Set("id", q.ID)
	}
	return v
}

// String returns the encoded query without a leading "?".
func (q Query) String() string {
	return q.Values().Encode()
}

// IsZero reports whether the query names nothing.
func (q Query) IsZero() bool {
	return q == Query{}
}
