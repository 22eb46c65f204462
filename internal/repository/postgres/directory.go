package postgres

import (
	"context"

	"github.com/kirinyoku/cinebook/internal/domain"
)

func (s *Store) GetFilm(ctx context.Context, id int64) (domain.Film, error) {
	const op = "postgres.Store.GetFilm"

	var f domain.Film
	err := s.handle().QueryRow(ctx,
		`SELECT id, name FROM films WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Name)
	if err != nil {
		return domain.Film{}, wrapDBErr(op, err)
	}

	return f, nil
}

func (s *Store) InsertFilm(ctx context.Context, f domain.Film) (domain.Film, error) {
	const op = "postgres.Store.InsertFilm"

	err := s.handle().QueryRow(ctx,
		`INSERT INTO films(name) VALUES ($1) RETURNING id`,
		f.Name,
	).Scan(&f.ID)
	if err != nil {
		return domain.Film{}, wrapDBErr(op, err)
	}

	return f, nil
}

func (s *Store) GetViewer(ctx context.Context, id int64) (domain.Viewer, error) {
	const op = "postgres.Store.GetViewer"

	var v domain.Viewer
	err := s.handle().QueryRow(ctx,
		`SELECT id, name FROM viewers WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name)
	if err != nil {
		return domain.Viewer{}, wrapDBErr(op, err)
	}

	return v, nil
}

func (s *Store) InsertViewer(ctx context.Context, v domain.Viewer) (domain.Viewer, error) {
	const op = "postgres.Store.InsertViewer"

	err := s.handle().QueryRow(ctx,
		`INSERT INTO viewers(name) VALUES ($1) RETURNING id`,
		v.Name,
	).Scan(&v.ID)
	if err != nil {
		return domain.Viewer{}, wrapDBErr(op, err)
	}

	return v, nil
}
