package postgres

import (
	"context"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/s21platform/user-stream-service/internal/config"
	"github.com/s21platform/user-stream-service/internal/model"
)

const usersTable = "incoming_users"

// Column order matches the values produced by userValues.
var userColumns = []string{
	"user_id", "gender", "title", "first_name", "last_name", "email", "username",
	"date_of_birth", "age", "phone", "cell", "street_number", "street_name",
	"city", "state", "country", "postcode", "latitude", "longitude",
	"timezone_offset", "timezone_description", "nationality",
	"picture_large", "picture_medium", "picture_thumbnail",
	"registered_date", "registered_age", "synced_at",
}

type Repository struct {
	connection *sqlx.DB
}

func New(cfg *config.Config) *Repository {
	conStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.Host, cfg.Postgres.Port)

	conn, err := sqlx.Connect("postgres", conStr)
	if err != nil {
		log.Fatal("error connect: ", err)
	}

	return &Repository{
		connection: conn,
	}
}

func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{
		connection: db,
	}
}

func (r *Repository) Close() {
	_ = r.connection.Close()
}

// UpsertUser inserts the full row for a new user_id. For a known user_id only
// synced_at changes; the stored record columns keep their first values.
func (r *Repository) UpsertUser(ctx context.Context, row model.StoredUserRow) error {
	query, args, err := sq.Insert(usersTable).
		Columns(userColumns...).
		Values(userValues(row)...).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET synced_at = EXCLUDED.synced_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = r.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", row.UserID, err)
	}

	return nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").
		From(usersTable).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %v", err)
	}

	var count int64
	err = r.connection.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

func userValues(row model.StoredUserRow) []interface{} {
	return []interface{}{
		row.UserID, row.Gender, row.Title, row.FirstName, row.LastName, row.Email, row.Username,
		row.DateOfBirth, row.Age, row.Phone, row.Cell, row.StreetNumber, row.StreetName,
		row.City, row.State, row.Country, row.Postcode, row.Latitude, row.Longitude,
		row.TimezoneOffset, row.TimezoneDescription, row.Nationality,
		row.PictureLarge, row.PictureMedium, row.PictureThumbnail,
		row.RegisteredDate, row.RegisteredAge, row.SyncedAt,
	}
}
