package model

import (
	"bytes"
	"encoding/json"
)

// UserRecord is one generated user exactly as the upstream generator shapes it.
// Records are relayed and persisted, never modified.
type UserRecord struct {
	Gender     string   `json:"gender"`
	Name       Name     `json:"name"`
	Location   Location `json:"location"`
	Email      string   `json:"email"`
	Login      Login    `json:"login"`
	Dob        DatedAge `json:"dob"`
	Registered DatedAge `json:"registered"`
	Phone      string   `json:"phone"`
	Cell       string   `json:"cell"`
	Picture    Picture  `json:"picture"`
	Nat        string   `json:"nat"`
}

type Name struct {
	Title string `json:"title"`
	First string `json:"first"`
	Last  string `json:"last"`
}

type Location struct {
	Street      Street          `json:"street"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	Country     string          `json:"country"`
	Postcode    json.RawMessage `json:"postcode"`
	Coordinates Coordinates     `json:"coordinates"`
	Timezone    Timezone        `json:"timezone"`
}

// Street.Number and Location.Postcode arrive as numbers or strings depending
// on nationality, so both are kept as raw JSON.
type Street struct {
	Number json.RawMessage `json:"number"`
	Name   string          `json:"name"`
}

type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type Timezone struct {
	Offset      string `json:"offset"`
	Description string `json:"description"`
}

type Login struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Salt     string `json:"salt,omitempty"`
	MD5      string `json:"md5,omitempty"`
	SHA1     string `json:"sha1,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

type DatedAge struct {
	Date string `json:"date"`
	Age  int    `json:"age"`
}

type Picture struct {
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Thumbnail string `json:"thumbnail"`
}

// UserID is the record's globally unique key.
func (u UserRecord) UserID() string {
	return u.Login.UUID
}

func (u UserRecord) FullName() string {
	return u.Name.First + " " + u.Name.Last
}

// rawText renders a string-or-number JSON value as text.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
