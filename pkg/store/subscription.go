package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanSubscription(row interface{ Scan(...any) error }) (sonar.Subscription, error) {
	var s sonar.Subscription
	var id, user int64
	var externalID, description string
	var intervalSecs, lastSubmitted sql.NullInt64
	if err := row.Scan(&id, &user, &externalID, &description, &intervalSecs, &lastSubmitted); err != nil {
		return sonar.Subscription{}, err
	}
	s.ID = sonar.SubscriptionID(id)
	s.User = sonar.UserID(user)
	s.ExternalID = sonar.ExternalMediaID(externalID)
	s.Description = description
	if intervalSecs.Valid {
		d := time.Duration(intervalSecs.Int64) * time.Second
		s.Interval = &d
	}
	if lastSubmitted.Valid {
		ts := sonar.TimestampFromSeconds(uint64(lastSubmitted.Int64))
		s.LastSubmitted = &ts
	}
	return s, nil
}

const subscriptionCols = `id, user, external_id, description, interval_secs, last_submitted`

// SubscriptionListByUser returns one user's subscriptions.
func SubscriptionListByUser(ctx context.Context, db DBTX, user sonar.UserID) ([]sonar.Subscription, error) {
	return subscriptionQuery(ctx, db,
		`SELECT `+subscriptionCols+` FROM subscription WHERE user = ? ORDER BY id ASC`, int64(user))
}

// SubscriptionListAll returns every subscription. The poller walks
// this on each cycle.
func SubscriptionListAll(ctx context.Context, db DBTX) ([]sonar.Subscription, error) {
	return subscriptionQuery(ctx, db,
		`SELECT `+subscriptionCols+` FROM subscription ORDER BY id ASC`)
}

func subscriptionQuery(ctx context.Context, db DBTX, query string, args ...any) ([]sonar.Subscription, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list subscriptions", err)
	}
	defer rows.Close()

	var out []sonar.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, dbErr("scan subscription", err)
		}
		out = append(out, s)
	}
	return out, dbErr("list subscriptions", rows.Err())
}

// SubscriptionGet returns one subscription or NotFound.
func SubscriptionGet(ctx context.Context, db DBTX, id sonar.SubscriptionID) (sonar.Subscription, error) {
	s, err := scanSubscription(db.QueryRowContext(ctx,
		`SELECT `+subscriptionCols+` FROM subscription WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Subscription{}, getErr("subscription", id, err)
	}
	return s, nil
}

// SubscriptionCreate records a standing re-download request. Creating
// an existing (user, external id) pair keeps the original row.
func SubscriptionCreate(ctx context.Context, db DBTX, create sonar.SubscriptionCreate) error {
	if create.ExternalID == "" {
		return sonar.NewError(sonar.ErrInvalid, "external id is empty")
	}
	var intervalSecs any
	if create.Interval != nil {
		intervalSecs = int64(create.Interval.Seconds())
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscription (user, external_id, description, interval_secs)
		 VALUES (?, ?, ?, ?)`,
		int64(create.User), create.ExternalID.String(), create.Description, intervalSecs)
	return dbErr("create subscription", err)
}

// SubscriptionDelete removes a (user, external id) subscription.
func SubscriptionDelete(ctx context.Context, db DBTX, user sonar.UserID, externalID sonar.ExternalMediaID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM subscription WHERE user = ? AND external_id = ?`,
		int64(user), externalID.String())
	return dbErr("delete subscription", err)
}

// SubscriptionMarkSubmitted stamps the last submission time.
func SubscriptionMarkSubmitted(ctx context.Context, db DBTX, id sonar.SubscriptionID, at sonar.Timestamp) error {
	_, err := db.ExecContext(ctx,
		`UPDATE subscription SET last_submitted = ? WHERE id = ?`,
		int64(at.Seconds), int64(id))
	return dbErr("mark subscription submitted", err)
}
