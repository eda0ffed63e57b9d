package models

import (
	"github.com/asjadnft/sui-indexer/go/sui"
)

// Event is the normalized per-event row.
type Event struct {
	TransactionDigest string
	EventSequence     int64
	Sender            string
	Package           string
	Module            string
	EventType         string
	EventTimeMs       *int64
	ParsedJSON        string
	Bcs               string
}

// NewEvent flattens one Move event into its row.
func NewEvent(e sui.Event) Event {
	var row = Event{
		TransactionDigest: e.ID.TxDigest,
		EventSequence:     int64(e.ID.EventSeq),
		Sender:            e.Sender,
		Package:           e.PackageID,
		Module:            e.TransactionModule,
		EventType:         e.Type,
		ParsedJSON:        string(e.ParsedJSON),
		Bcs:               e.Bcs,
	}
	if e.TimestampMs != nil {
		var t = int64(*e.TimestampMs)
		row.EventTimeMs = &t
	}
	return row
}
