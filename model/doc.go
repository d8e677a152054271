// Package model defines the shared identifier and value types used across
// the tabletio write path.
package model
