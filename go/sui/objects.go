package sui

import (
	"encoding/json"
	"fmt"
)

// RawData is the "bcs" rendering of an object: either a Move object's
// raw bytes or a package's compiled module map.
type RawData struct {
	DataType string `json:"dataType"`
	// Move object fields.
	Type              string `json:"type,omitempty"`
	HasPublicTransfer bool   `json:"hasPublicTransfer,omitempty"`
	BcsBytes          string `json:"bcsBytes,omitempty"`
	// Package fields.
	ID        string            `json:"id,omitempty"`
	ModuleMap map[string]string `json:"moduleMap,omitempty"`
	Version   Uint64            `json:"version,omitempty"`
}

// IsPackage reports whether the raw data is the package variant.
func (r *RawData) IsPackage() bool { return r != nil && r.DataType == "package" }

// ObjectData is the full state of one object at one version.
type ObjectData struct {
	ObjectID            string   `json:"objectId"`
	Version             Uint64   `json:"version"`
	Digest              string   `json:"digest"`
	Type                string   `json:"type,omitempty"`
	Owner               *Owner   `json:"owner,omitempty"`
	PreviousTransaction string   `json:"previousTransaction,omitempty"`
	StorageRebate       *Uint64  `json:"storageRebate,omitempty"`
	Bcs                 *RawData `json:"bcs,omitempty"`
}

// ObjectDataOptions selects which ObjectData fields the node returns.
type ObjectDataOptions struct {
	ShowType                bool `json:"showType,omitempty"`
	ShowOwner               bool `json:"showOwner,omitempty"`
	ShowPreviousTransaction bool `json:"showPreviousTransaction,omitempty"`
	ShowDisplay             bool `json:"showDisplay,omitempty"`
	ShowContent             bool `json:"showContent,omitempty"`
	ShowBcs                 bool `json:"showBcs,omitempty"`
	ShowStorageRebate       bool `json:"showStorageRebate,omitempty"`
}

// BcsLosslessOptions requests every field needed to reconstruct the
// object, with raw BCS bytes in place of parsed content.
func BcsLosslessOptions() ObjectDataOptions {
	return ObjectDataOptions{
		ShowType:                true,
		ShowOwner:               true,
		ShowPreviousTransaction: true,
		ShowBcs:                 true,
		ShowStorageRebate:       true,
	}
}

// GetPastObjectRequest names one (object, version) to fetch.
type GetPastObjectRequest struct {
	ObjectID string `json:"objectId"`
	Version  Uint64 `json:"version"`
}

// PastObjectResponse is the tagged result of a past-object lookup.
type PastObjectResponse struct {
	Status  string          `json:"status"`
	Details json.RawMessage `json:"details"`
}

const pastObjectVersionFound = "VersionFound"

// IntoObject unwraps a successful lookup, or describes why the version
// was not returned.
func (r *PastObjectResponse) IntoObject() (*ObjectData, error) {
	if r.Status != pastObjectVersionFound {
		return nil, fmt.Errorf("past object lookup returned status %q: %s", r.Status, string(r.Details))
	}
	var data ObjectData
	if err := json.Unmarshal(r.Details, &data); err != nil {
		return nil, fmt.Errorf("decoding past object data: %w", err)
	}
	return &data, nil
}
