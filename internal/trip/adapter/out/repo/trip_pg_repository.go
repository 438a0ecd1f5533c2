package repo

import (
	"context"
	"errors"
	"fmt"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const tripColumns = `
	id, request_id, status, mine_id, mine_owner_id, truck_owner_id, driver_id, truck_id,
	material, quantity, price, delivery_method, delivery_location, scheduled_at,
	cancel_reason, issue_reason, issue_notes, created_at, updated_at`

// querier — общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TripPgRepository — PostgreSQL репозиторий рейсов.
// История этапов хранится в trip_milestones и только дописывается.
type TripPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTripPgRepository создает новый экземпляр репозитория
func NewTripPgRepository(pool *pgxpool.Pool, log *logger.Logger) *TripPgRepository {
	return &TripPgRepository{
		pool: pool,
		log:  log,
	}
}

// Create сохраняет рейс и его начальную историю одной транзакцией
func (r *TripPgRepository) Create(ctx context.Context, trip *domain.Trip) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO trips (` + tripColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`
		issueReason, issueNotes := issueColumns(trip.Issue)
		if _, err := tx.Exec(ctx, query,
			trip.ID,
			trip.RequestID,
			trip.Status,
			trip.MineID,
			trip.MineOwnerID,
			trip.TruckOwnerID,
			trip.DriverID,
			trip.TruckID,
			trip.Material,
			trip.Quantity,
			trip.Price,
			trip.DeliveryMethod,
			trip.DeliveryLocation,
			trip.ScheduledAt,
			trip.CancelReason,
			issueReason,
			issueNotes,
			trip.CreatedAt,
			trip.UpdatedAt,
		); err != nil {
			return err
		}
		return insertMilestones(ctx, tx, trip.ID, trip.MilestoneHistory, 0)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateTrip
		}
		r.log.Error(logger.Entry{
			Action:  "db_create_trip_failed",
			Message: err.Error(),
			TripID:  trip.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// FindByID возвращает рейс с полной историей этапов
func (r *TripPgRepository) FindByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	trip, err := loadTrip(ctx, r.pool, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return nil, r.wrapFindErr("db_find_trip_by_id_failed", tripID, err)
	}
	return trip, nil
}

// FindByRequestID возвращает рейс по заявке
func (r *TripPgRepository) FindByRequestID(ctx context.Context, requestID string) (*domain.Trip, error) {
	trip, err := loadTrip(ctx, r.pool, `SELECT `+tripColumns+` FROM trips WHERE request_id = $1`, requestID)
	if err != nil {
		return nil, r.wrapFindErr("db_find_trip_by_request_failed", "", err)
	}
	return trip, nil
}

// categorizedTrips — рейсы участника с категорией, вычисленной так же, как
// domain.Categorize: по статусу и последней записи trip_milestones.
func categorizedTrips(column string) string {
	return fmt.Sprintf(`
		WITH categorized AS (
			SELECT t.*,
				CASE
					WHEN t.status <> '%[2]s' THEN '%[5]s'
					WHEN lm.status IS NULL OR lm.status = '%[6]s' THEN '%[4]s'
					WHEN lm.status = '%[7]s' THEN '%[5]s'
					ELSE '%[3]s'
				END AS category
			FROM trips t
			LEFT JOIN LATERAL (
				SELECT m.status
				FROM trip_milestones m
				WHERE m.trip_id = t.id
				ORDER BY m.seq DESC
				LIMIT 1
			) lm ON true
			WHERE t.%[1]s = $1
		)`,
		column,
		domain.TripStatusActive,
		domain.CategoryActive,
		domain.CategoryScheduled,
		domain.CategoryHistory,
		domain.MilestoneTripAssigned,
		domain.MilestoneDeliveryVerified,
	)
}

// ListByParticipant возвращает последние рейсы участника.
// Категория фильтруется в SQL до LIMIT.
func (r *TripPgRepository) ListByParticipant(ctx context.Context, filter out.TripFilter) ([]*domain.Trip, error) {
	column, err := participantColumn(filter.Role)
	if err != nil {
		return nil, err
	}

	query := categorizedTrips(column) + `
		SELECT ` + tripColumns + `
		FROM categorized
		WHERE $2::text = '' OR category = $2::text
		ORDER BY created_at DESC, id
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, filter.UserID, string(filter.Category), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	trips, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Trip, error) {
		return scanTrip(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan trips: %w", err)
	}
	if len(trips) == 0 {
		return trips, nil
	}

	ids := make([]string, len(trips))
	byID := make(map[string]*domain.Trip, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	mrows, err := r.pool.Query(ctx, `
		SELECT trip_id, status, reached_at
		FROM trip_milestones
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, seq
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var (
			tripID string
			event  domain.MilestoneEvent
		)
		if err := mrows.Scan(&tripID, &event.Status, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		if t := byID[tripID]; t != nil {
			t.MilestoneHistory = append(t.MilestoneHistory, event)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return trips, nil
}

// CountByCategory считает все рейсы участника по вкладкам
func (r *TripPgRepository) CountByCategory(ctx context.Context, role domain.Role, userID string) (map[domain.Category]int, error) {
	column, err := participantColumn(role)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, categorizedTrips(column)+`
		SELECT category, count(*)
		FROM categorized
		GROUP BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("count trips: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Category]int, 3)
	for rows.Next() {
		var (
			category domain.Category
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan trip count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip counts: %w", err)
	}
	return counts, nil
}

// Mutate блокирует строку рейса (SELECT ... FOR UPDATE), применяет fn
// и сохраняет статус и новые этапы. Ошибка fn откатывает транзакцию.
func (r *TripPgRepository) Mutate(ctx context.Context, tripID string, fn out.MutateFunc) (*domain.Trip, error) {
	var result *domain.Trip
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		trip, err := loadTrip(ctx, tx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, tripID)
		if err != nil {
			return err
		}
		persisted := len(trip.MilestoneHistory)

		if err := fn(trip); err != nil {
			return err
		}
		if len(trip.MilestoneHistory) < persisted {
			return errors.New("milestone history is append-only")
		}

		issueReason, issueNotes := issueColumns(trip.Issue)
		if _, err := tx.Exec(ctx, `
			UPDATE trips
			SET status = $2, cancel_reason = $3, issue_reason = $4, issue_notes = $5, updated_at = $6
			WHERE id = $1
		`, trip.ID, trip.Status, trip.CancelReason, issueReason, issueNotes, trip.UpdatedAt); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		if err := insertMilestones(ctx, tx, trip.ID, trip.MilestoneHistory[persisted:], persisted); err != nil {
			return err
		}
		result = trip
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// параллельная запись того же этапа
			return nil, domain.ErrMilestoneAlreadyReached
		}
		r.log.Error(logger.Entry{
			Action:  "db_mutate_trip_failed",
			Message: err.Error(),
			TripID:  tripID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("mutate trip: %w", err)
	}
	return result, nil
}

func (r *TripPgRepository) wrapFindErr(action, tripID string, err error) error {
	if errors.Is(err, domain.ErrTripNotFound) {
		return err
	}
	r.log.Error(logger.Entry{
		Action:  action,
		Message: err.Error(),
		TripID:  tripID,
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
	return fmt.Errorf("find trip: %w", err)
}

func loadTrip(ctx context.Context, q querier, query string, arg any) (*domain.Trip, error) {
	trip, err := scanTrip(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTripNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT status, reached_at
		FROM trip_milestones
		WHERE trip_id = $1
		ORDER BY seq
	`, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MilestoneEvent, error) {
		var e domain.MilestoneEvent
		err := row.Scan(&e.Status, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan milestones: %w", err)
	}
	trip.MilestoneHistory = history
	return trip, nil
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var (
		trip        domain.Trip
		issueReason *string
		issueNotes  *string
	)
	err := row.Scan(
		&trip.ID,
		&trip.RequestID,
		&trip.Status,
		&trip.MineID,
		&trip.MineOwnerID,
		&trip.TruckOwnerID,
		&trip.DriverID,
		&trip.TruckID,
		&trip.Material,
		&trip.Quantity,
		&trip.Price,
		&trip.DeliveryMethod,
		&trip.DeliveryLocation,
		&trip.ScheduledAt,
		&trip.CancelReason,
		&issueReason,
		&issueNotes,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if issueReason != nil {
		trip.Issue = &domain.Issue{Reason: domain.IssueReason(*issueReason)}
		if issueNotes != nil {
			trip.Issue.Notes = *issueNotes
		}
	}
	return &trip, nil
}

func insertMilestones(ctx context.Context, tx pgx.Tx, tripID string, events []domain.MilestoneEvent, offset int) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, e := range events {
		batch.Queue(`
			INSERT INTO trip_milestones (trip_id, seq, status, reached_at)
			VALUES ($1, $2, $3, $4)
		`, tripID, offset+i, e.Status, e.Timestamp)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert milestones: %w", err)
	}
	return nil
}

func issueColumns(issue *domain.Issue) (reason, notes *string) {
	if issue == nil {
		return nil, nil
	}
	r := string(issue.Reason)
	n := issue.Notes
	return &r, &n
}

func participantColumn(role domain.Role) (string, error) {
	switch role {
	case domain.RoleDriver:
		return "driver_id", nil
	case domain.RoleTruckOwner:
		return "truck_owner_id", nil
	case domain.RoleMineOwner:
		return "mine_owner_id", nil
	default:
		return "", fmt.Errorf("%w: role %q", domain.ErrNotTripParticipant, role)
	}
}

// isDomainErr — ошибки правил рейса, возвращенные из fn, пробрасываются как есть
func isDomainErr(err error) bool {
	for _, target := range []error{
		domain.ErrTripNotFound,
		domain.ErrUnknownMilestone,
		domain.ErrOutOfOrder,
		domain.ErrMilestoneAlreadyReached,
		domain.ErrRoleNotPermitted,
		domain.ErrVerifierRequired,
		domain.ErrNotTripParticipant,
		domain.ErrTripClosed,
		domain.ErrInvalidIssueReason,
		domain.ErrCancelReasonRequired,
		domain.ErrCancelNotAllowed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
