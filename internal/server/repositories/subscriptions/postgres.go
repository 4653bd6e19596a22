package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/vidhub/internal/dbx"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repoerr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Stats(ctx context.Context, channelID, viewerID string) (*Stats, error) {
	query :=
		`SELECT
			(SELECT count(*) FROM subscriptions WHERE channel_id = $1),
			(SELECT count(*) FROM subscriptions WHERE subscriber_id = $1),
			EXISTS (SELECT 1 FROM subscriptions WHERE channel_id = $1 AND subscriber_id::text = $2)`

	s := &Stats{}
	err := r.db.QueryRowContext(ctx, query, channelID, viewerID).
		Scan(&s.Subscribers, &s.SubscribedTo, &s.IsSubscribed)
	if err != nil {
		return nil, repoerr.Wrap(err)
	}

	return s, nil
}
