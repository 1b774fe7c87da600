package model

import "time"

// StoredUserRow is the persisted projection of a UserRecord. One row per UserID.
type StoredUserRow struct {
	UserID              string    `db:"user_id"`
	Gender              string    `db:"gender"`
	Title               string    `db:"title"`
	FirstName           string    `db:"first_name"`
	LastName            string    `db:"last_name"`
	Email               string    `db:"email"`
	Username            string    `db:"username"`
	DateOfBirth         string    `db:"date_of_birth"`
	Age                 int       `db:"age"`
	Phone               string    `db:"phone"`
	Cell                string    `db:"cell"`
	StreetNumber        string    `db:"street_number"`
	StreetName          string    `db:"street_name"`
	City                string    `db:"city"`
	State               string    `db:"state"`
	Country             string    `db:"country"`
	Postcode            string    `db:"postcode"`
	Latitude            string    `db:"latitude"`
	Longitude           string    `db:"longitude"`
	TimezoneOffset      string    `db:"timezone_offset"`
	TimezoneDescription string    `db:"timezone_description"`
	Nationality         string    `db:"nationality"`
	PictureLarge        string    `db:"picture_large"`
	PictureMedium       string    `db:"picture_medium"`
	PictureThumbnail    string    `db:"picture_thumbnail"`
	RegisteredDate      string    `db:"registered_date"`
	RegisteredAge       int       `db:"registered_age"`
	SyncedAt            time.Time `db:"synced_at"`
}

func NewStoredUserRow(u UserRecord, syncedAt time.Time) StoredUserRow {
	return StoredUserRow{
		UserID:              u.UserID(),
		Gender:              u.Gender,
		Title:               u.Name.Title,
		FirstName:           u.Name.First,
		LastName:            u.Name.Last,
		Email:               u.Email,
		Username:            u.Login.Username,
		DateOfBirth:         u.Dob.Date,
		Age:                 u.Dob.Age,
		Phone:               u.Phone,
		Cell:                u.Cell,
		StreetNumber:        rawText(u.Location.Street.Number),
		StreetName:          u.Location.Street.Name,
		City:                u.Location.City,
		State:               u.Location.State,
		Country:             u.Location.Country,
		Postcode:            rawText(u.Location.Postcode),
		Latitude:            u.Location.Coordinates.Latitude,
		Longitude:           u.Location.Coordinates.Longitude,
		TimezoneOffset:      u.Location.Timezone.Offset,
		TimezoneDescription: u.Location.Timezone.Description,
		Nationality:         u.Nat,
		PictureLarge:        u.Picture.Large,
		PictureMedium:       u.Picture.Medium,
		PictureThumbnail:    u.Picture.Thumbnail,
		RegisteredDate:      u.Registered.Date,
		RegisteredAge:       u.Registered.Age,
		SyncedAt:            syncedAt,
	}
}
