// Package provider answers capability queries with deterministic mock figures
// derived from the location name.
package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/hpungsan/weatheragent/internal/errors"
)

// Conditions in hash order.
var conditions = []string{"Sunny", "Cloudy", "Partly Cloudy", "Overcast"}

// Report holds the figures behind every capability answer.
type Report struct {
	Location    string
	Temperature int
	Condition   string
	Humidity    int
	Raining     bool
}

// Lookup derives a Report for location. The same location always yields the
// same figures. A blank location gets the "Unknown Location" defaults.
func Lookup(location string) Report {
	if strings.TrimSpace(location) == "" {
		return Report{
			Location:    "Unknown Location",
			Temperature: 20,
			Condition:   "Cloudy",
			Humidity:    50,
		}
	}

	h := stringHash(location)
	return Report{
		Location:    location,
		Temperature: 15 + abs(h%16),
		Condition:   conditions[abs(h%4)],
		Humidity:    40 + abs(h%41),
		Raining:     h%3 == 0,
	}
}

// stringHash is the 31-multiplier polynomial hash over UTF-16 code units,
// wrapping at 32 bits.
func stringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

func abs(n int32) int {
	if n < 0 {
		return int(-n)
	}
	return int(n)
}

func (r Report) rainStatus() string {
	if r.Raining {
		return "Raining"
	}
	return "Not raining"
}

// Mock is a CapabilityProvider backed by Lookup. The zero value is ready to use.
type Mock struct{}

// NewMock returns a Mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// Weather returns the full report for location.
func (m *Mock) Weather(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewProviderFailed("weather", location, err)
	}
	r := Lookup(location)
	return fmt.Sprintf("Weather in %s: %d°C, %s, Humidity: %d%%, %s",
		r.Location, r.Temperature, r.Condition, r.Humidity, r.rainStatus()), nil
}

// Temperature returns the current temperature for location.
func (m *Mock) Temperature(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewProviderFailed("temperature", location, err)
	}
	r := Lookup(location)
	return fmt.Sprintf("The current temperature in %s is %d°C", r.Location, r.Temperature), nil
}

// Rain reports whether it is raining in location.
func (m *Mock) Rain(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewProviderFailed("rain", location, err)
	}
	r := Lookup(location)
	status := "not"
	if r.Raining {
		status = "currently"
	}
	return fmt.Sprintf("It is %s raining in %s", status, r.Location), nil
}
