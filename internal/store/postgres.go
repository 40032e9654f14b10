package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwise1/civic_dispatch/internal/db"
	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	voteKindVote         = "vote"
	voteKindVerification = "verification"
)

const reportColumns = `
    id, title, description, category, severity,
    ST_X(position::geometry) AS longitude, ST_Y(position::geometry) AS latitude,
    photo_url, status, priority_score, vote_count, verification_score,
    owner_id, assigned_authority, created_at, updated_at, version`

// PostgresStore runs every query against PostGIS through the shared pgx pool.
type PostgresStore struct {
	DB *db.DB
}

func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{DB: database}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (model.Report, error) {
	var r model.Report
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Category, &r.Severity,
		&r.Location.Longitude, &r.Location.Latitude,
		&r.PhotoURL, &r.Status, &r.PriorityScore, &r.VoteCount, &r.VerificationScore,
		&r.OwnerID, &r.AssignedAuthority, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	r.Votes = map[uuid.UUID]int{}
	r.Verifications = map[uuid.UUID]int{}
	return r, err
}

func (s *PostgresStore) CreateReport(ctx context.Context, r *model.Report) error {
	return s.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		query := `
            INSERT INTO reports (
                id, title, description, category, severity, position, photo_url, status,
                priority_score, vote_count, verification_score, owner_id, assigned_authority,
                created_at, updated_at, version
            ) VALUES (
                $1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8, $9,
                $10, $11, $12, $13, $14, $15, $16, 1
            )
        `
		_, err := tx.Exec(ctx, query,
			r.ID, r.Title, r.Description, r.Category, r.Severity,
			r.Location.Longitude, r.Location.Latitude, r.PhotoURL, r.Status,
			r.PriorityScore, r.VoteCount, r.VerificationScore, r.OwnerID, r.AssignedAuthority,
			r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting report")
		}
		if err := writeChildren(ctx, tx, r, 0); err != nil {
			return err
		}
		r.Version = 1
		return nil
	})
}

func (s *PostgresStore) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	r, err := scanReport(s.DB.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, errors.Wrap(err, "fetching report")
	}

	reports := []model.Report{r}
	if err := s.loadChildren(ctx, reports); err != nil {
		return model.Report{}, err
	}
	return reports[0], nil
}

func (s *PostgresStore) UpdateReport(ctx context.Context, r *model.Report) error {
	return s.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		var persistedHistory int
		err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM report_history WHERE report_id = $1`, r.ID).Scan(&persistedHistory)
		if err != nil {
			return errors.Wrap(err, "counting history")
		}

		query := `
            UPDATE reports
            SET
                title = $1,
                description = $2,
                category = $3,
                severity = $4,
                photo_url = $5,
                status = $6,
                priority_score = $7,
                vote_count = $8,
                verification_score = $9,
                assigned_authority = $10,
                updated_at = $11,
                version = version + 1
            WHERE id = $12 AND version = $13
        `
		result, err := tx.Exec(ctx, query,
			r.Title, r.Description, r.Category, r.Severity, r.PhotoURL, r.Status,
			r.PriorityScore, r.VoteCount, r.VerificationScore, r.AssignedAuthority,
			r.UpdatedAt, r.ID, r.Version,
		)
		if err != nil {
			return errors.Wrap(err, "updating report")
		}
		if result.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, r.ID).Scan(&exists); err != nil {
				return errors.Wrap(err, "checking report existence")
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if err := writeChildren(ctx, tx, r, persistedHistory); err != nil {
			return err
		}
		r.Version++
		return nil
	})
}

// writeChildren upserts every vote and appends history entries past the persisted prefix.
func writeChildren(ctx context.Context, tx pgx.Tx, r *model.Report, persistedHistory int) error {
	batch := &pgx.Batch{}
	upsert := `
        INSERT INTO report_votes (report_id, kind, voter_id, value)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (report_id, kind, voter_id) DO UPDATE SET value = EXCLUDED.value
    `
	for voter, value := range r.Votes {
		batch.Queue(upsert, r.ID, voteKindVote, voter, value)
	}
	for voter, value := range r.Verifications {
		batch.Queue(upsert, r.ID, voteKindVerification, voter, value)
	}
	for i := persistedHistory; i < len(r.History); i++ {
		h := r.History[i]
		batch.Queue(`
            INSERT INTO report_history (report_id, seq, status, changed_by, note, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (report_id, seq) DO NOTHING
        `, r.ID, i, h.Status, h.ChangedBy, h.Note, h.Timestamp)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "writing votes and history")
	}
	return nil
}

func (s *PostgresStore) loadChildren(ctx context.Context, reports []model.Report) error {
	if len(reports) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(reports))
	index := make(map[uuid.UUID]int, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
		index[r.ID] = i
	}

	rows, err := s.DB.Pool().Query(ctx, `
        SELECT report_id, kind, voter_id, value FROM report_votes WHERE report_id = ANY($1)
    `, ids)
	if err != nil {
		return errors.Wrap(err, "querying votes")
	}
	for rows.Next() {
		var (
			reportID, voterID uuid.UUID
			kind              string
			value             int
		)
		if err := rows.Scan(&reportID, &kind, &voterID, &value); err != nil {
			rows.Close()
			return errors.Wrap(err, "scanning vote")
		}
		r := &reports[index[reportID]]
		if kind == voteKindVerification {
			r.Verifications[voterID] = value
		} else {
			r.Votes[voterID] = value
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating votes")
	}

	rows, err = s.DB.Pool().Query(ctx, `
        SELECT report_id, status, changed_by, note, created_at
        FROM report_history
        WHERE report_id = ANY($1)
        ORDER BY report_id, seq
    `, ids)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reportID uuid.UUID
			h        model.HistoryEntry
		)
		if err := rows.Scan(&reportID, &h.Status, &h.ChangedBy, &h.Note, &h.Timestamp); err != nil {
			return errors.Wrap(err, "scanning history")
		}
		r := &reports[index[reportID]]
		r.History = append(r.History, h)
	}
	return errors.Wrap(rows.Err(), "iterating history")
}

func (s *PostgresStore) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	distance := "0"
	if filter.Near != nil {
		point := fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography",
			arg(filter.Near.Point.Longitude), arg(filter.Near.Point.Latitude))
		distance = fmt.Sprintf("ST_Distance(position, %s)", point)
		conditions = append(conditions, fmt.Sprintf("ST_DWithin(position, %s, %s)", point, arg(filter.Near.RadiusMeters)))
	}
	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = "+arg(*filter.OwnerID))
	}
	if filter.ExcludeOwner != nil {
		conditions = append(conditions, "owner_id <> "+arg(*filter.ExcludeOwner))
	}
	if filter.AuthorityID != nil {
		conditions = append(conditions, "assigned_authority = "+arg(*filter.AuthorityID))
	}
	if filter.VisibleTo != nil {
		conditions = append(conditions, fmt.Sprintf("(owner_id = %s OR status = ANY(%s))",
			arg(*filter.VisibleTo), arg(statusStrings(model.PublicStatuses))))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status = ANY("+arg(statusStrings(filter.Statuses))+")")
	}
	if len(filter.Categories) > 0 {
		cats := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			cats[i] = string(c)
		}
		conditions = append(conditions, "category = ANY("+arg(cats)+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.Sort
	if sortBy == "" {
		sortBy = model.SortNewest
		if filter.Near != nil {
			sortBy = model.SortDistance
		}
	}
	orderBy := "created_at DESC, id"
	switch {
	case sortBy == model.SortDistance && filter.Near != nil:
		orderBy = "distance, created_at DESC, id"
	case sortBy == model.SortPriority:
		orderBy = "priority_score DESC, created_at DESC, id"
	}

	query := fmt.Sprintf(`SELECT %s, %s AS distance FROM reports %s ORDER BY %s`, reportColumns, distance, whereClause, orderBy)
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.DB.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		var (
			r           model.Report
			ignoredDist float64
		)
		err := rows.Scan(
			&r.ID, &r.Title, &r.Description, &r.Category, &r.Severity,
			&r.Location.Longitude, &r.Location.Latitude,
			&r.PhotoURL, &r.Status, &r.PriorityScore, &r.VoteCount, &r.VerificationScore,
			&r.OwnerID, &r.AssignedAuthority, &r.CreatedAt, &r.UpdatedAt, &r.Version,
			&ignoredDist,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning report")
		}
		r.Votes = map[uuid.UUID]int{}
		r.Verifications = map[uuid.UUID]int{}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating reports")
	}
	rows.Close()

	if err := s.loadChildren(ctx, reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (s *PostgresStore) ExistsWithinRadius(ctx context.Context, q RadiusQuery) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM reports
            WHERE category = $1
              AND NOT (status = ANY($2))
              AND ST_DWithin(position, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
        )
    `
	var exists bool
	err := s.DB.Pool().QueryRow(ctx, query,
		q.Category, statusStrings(q.ExcludeStatuses), q.Point.Longitude, q.Point.Latitude, q.RadiusMeters,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "checking nearby reports")
	}
	return exists, nil
}

type geoJSONPolygon struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

func parsePolygon(raw *string) (model.Polygon, error) {
	if raw == nil {
		return nil, nil
	}
	var g geoJSONPolygon
	if err := json.Unmarshal([]byte(*raw), &g); err != nil {
		return nil, errors.Wrap(err, "decoding polygon")
	}
	if len(g.Coordinates) == 0 {
		return nil, nil
	}
	return model.PolygonFromCoordinates(g.Coordinates[0]), nil
}

func (s *PostgresStore) FindContainingRegions(ctx context.Context, point model.Location) ([]model.AuthorityRegion, error) {
	query := `
        SELECT id, seq, authority_id, name, ST_AsGeoJSON(area), approved_at
        FROM authority_regions
        WHERE ST_Intersects(area, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
        ORDER BY approved_at, seq
    `
	return s.queryRegions(ctx, query, point.Longitude, point.Latitude)
}

func (s *PostgresStore) ListRegions(ctx context.Context) ([]model.AuthorityRegion, error) {
	query := `
        SELECT id, seq, authority_id, name, ST_AsGeoJSON(area), approved_at
        FROM authority_regions
        ORDER BY approved_at, seq
    `
	return s.queryRegions(ctx, query)
}

func (s *PostgresStore) queryRegions(ctx context.Context, query string, args ...any) ([]model.AuthorityRegion, error) {
	rows, err := s.DB.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying regions")
	}
	defer rows.Close()

	regions := make([]model.AuthorityRegion, 0)
	for rows.Next() {
		var (
			region model.AuthorityRegion
			area   string
		)
		if err := rows.Scan(&region.ID, &region.Seq, &region.AuthorityID, &region.Name, &area, &region.ApprovedAt); err != nil {
			return nil, errors.Wrap(err, "scanning region")
		}
		if region.Area, err = parsePolygon(&area); err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, errors.Wrap(rows.Err(), "iterating regions")
}

func (s *PostgresStore) CreateRegion(ctx context.Context, region *model.AuthorityRegion) error {
	query := `
        INSERT INTO authority_regions (id, authority_id, name, area, approved_at)
        VALUES ($1, $2, $3, ST_GeomFromText($4, 4326)::geography, $5)
        RETURNING seq
    `
	err := s.DB.Pool().QueryRow(ctx, query,
		region.ID, region.AuthorityID, region.Name, region.Area.WKT(), region.ApprovedAt,
	).Scan(&region.Seq)
	return errors.Wrap(err, "inserting region")
}

func (s *PostgresStore) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	var area *string
	if len(a.Area) > 0 {
		wkt := a.Area.WKT()
		area = &wkt
	}
	query := `
        INSERT INTO announcements (id, title, message, authority_id, area, global, created_at)
        VALUES ($1, $2, $3, $4, ST_GeomFromText($5, 4326)::geography, $6, $7)
    `
	_, err := s.DB.Pool().Exec(ctx, query, a.ID, a.Title, a.Message, a.AuthorityID, area, a.Global, a.CreatedAt)
	return errors.Wrap(err, "inserting announcement")
}

func (s *PostgresStore) ListAnnouncements(ctx context.Context, filter model.AnnouncementFilter) ([]model.Announcement, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case filter.AuthorityID != nil:
		conditions = append(conditions, "authority_id = "+arg(*filter.AuthorityID))
	case filter.Point != nil:
		conditions = append(conditions, fmt.Sprintf(
			"(NOT global AND ST_Intersects(area, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography))",
			arg(filter.Point.Longitude), arg(filter.Point.Latitude)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
		if filter.IncludeGlobal {
			whereClause += " OR global"
		}
	}

	query := fmt.Sprintf(`
        SELECT id, title, message, authority_id, ST_AsGeoJSON(area), global, created_at
        FROM announcements
        %s
        ORDER BY created_at DESC
    `, whereClause)
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.DB.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	defer rows.Close()

	out := make([]model.Announcement, 0)
	for rows.Next() {
		var (
			a    model.Announcement
			area *string
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.AuthorityID, &area, &a.Global, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning announcement")
		}
		if a.Area, err = parsePolygon(area); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "iterating announcements")
}
