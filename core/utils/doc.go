// Package utils provides conversion helpers for raw database values.
package utils
