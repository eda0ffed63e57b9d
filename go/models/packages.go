package models

import (
	"fmt"

	"github.com/asjadnft/sui-indexer/go/sui"
)

// Package is one published Move package.
type Package struct {
	PackageID string
	Version   int64
	Author    string
	// ModuleMap holds each compiled module's bytes, base64 as fetched.
	ModuleMap map[string]string
}

// NewPackage builds a Package row from its publisher and raw package data.
func NewPackage(sender string, raw *sui.RawData) (Package, error) {
	if !raw.IsPackage() {
		return Package{}, fmt.Errorf("object %s raw data is %q, not a package", raw.ID, raw.DataType)
	}
	return Package{
		PackageID: raw.ID,
		Version:   int64(raw.Version),
		Author:    sender,
		ModuleMap: raw.ModuleMap,
	}, nil
}
