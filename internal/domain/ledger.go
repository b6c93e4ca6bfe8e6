package domain

import "time"

// Outcome distinguishes why a dedup key is present in the ledger. Both
// values gate novelty the same way; the distinction is kept inspectable.
type Outcome string

const (
	// OutcomeSent records a confirmed delivery through a channel.
	OutcomeSent Outcome = "sent"
	// OutcomeRejected records a triage rejection; the entry was never
	// delivered and never will be.
	OutcomeRejected Outcome = "rejected"
)

// LedgerRecord is the durable per-(dedup key, channel) delivery record.
// Created at commit time, never mutated, pruned only by retention cleanup.
type LedgerRecord struct {
	DedupKey    string
	Channel     string
	Title       string
	Link        string
	Outcome     Outcome
	DeliveredAt time.Time
}

// LedgerStats summarizes the ledger for the stats command.
type LedgerStats struct {
	Total         int64
	Sent          int64
	Rejected      int64
	Today         int64
	LastDelivered time.Time // zero when the ledger is empty
}

// Message is a rendered batch ready for one delivery call.
type Message struct {
	Title string
	Body  string
	Style string // html, markdown or text
}
