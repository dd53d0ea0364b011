package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ClientFilter struct {
	Search string
	Limit  int
	Offset int
}

func (s store) ListClients(ctx context.Context, filter ClientFilter) ([]domain.Client, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)
	like := likePattern(filter.Search)

	query := `
		SELECT id, name, phone, document, address, created_at
		FROM clients
		WHERE ($1 = '' OR name ILIKE $1 OR phone ILIKE $1 OR document ILIKE $1)
	`
	if like != "" {
		query += " ORDER BY name ASC"
	} else {
		query += " ORDER BY id DESC"
	}
	query += " LIMIT $2 OFFSET $3"

	rows, err := s.q.Query(ctx, query, like, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, limit)
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

// SearchClients returns autocomplete entries labelled "name - phone - document".
func (s store) SearchClients(ctx context.Context, search string, limit int) ([]domain.ClientLookup, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, name, phone, document
		FROM clients
		WHERE ($1 = '' OR name ILIKE $1 OR phone ILIKE $1 OR document ILIKE $1)
		ORDER BY name ASC
		LIMIT $2
	`, likePattern(search), limit)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	defer rows.Close()

	list := make([]domain.ClientLookup, 0, limit)
	for rows.Next() {
		var c domain.ClientLookup
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Document); err != nil {
			return nil, fmt.Errorf("scan client lookup: %w", err)
		}
		c.Label = clientLabel(c.Name, c.Phone, c.Document)
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client lookup: %w", err)
	}
	return list, nil
}

func clientLabel(name, phone, document string) string {
	parts := []string{name}
	for _, part := range []string{phone, document} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " - ")
}

func (s store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, name, phone, document, address, created_at
		FROM clients
		WHERE id = $1
	`, id)
	c, err := scanClientRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return &c, nil
}

// CreateClient inserts the client. A positive ID is kept as is.
func (s store) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO clients (id, name, phone, document, address)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('clients', 'id'))),
			$2, $3, $4, $5
		)
		RETURNING id, name, phone, document, address, created_at
	`, nullableID(c.ID), c.Name, c.Phone, c.Document, c.Address)
	created, err := scanClientRow(row)
	if err != nil {
		return domain.Client{}, fmt.Errorf("create client: %w", mapWriteError(err))
	}
	return created, nil
}

func (s store) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, phone = $3, document = $4, address = $5
		WHERE id = $1
		RETURNING id, name, phone, document, address, created_at
	`, c.ID, c.Name, c.Phone, c.Document, c.Address)
	updated, err := scanClientRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, ErrNotFound
		}
		return domain.Client{}, fmt.Errorf("update client %d: %w", c.ID, err)
	}
	return updated, nil
}

func (s store) ListVehicles(ctx context.Context, clientID int64) ([]domain.Vehicle, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, client_id, plate, model, year
		FROM vehicles
		WHERE client_id = $1
		ORDER BY id DESC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return vehicles, nil
}

func (s store) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, client_id, plate, model, year
		FROM vehicles
		WHERE id = $1
	`, id)
	v, err := scanVehicleRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return &v, nil
}

// FindVehicleByPlate looks up a plate among the vehicles of one client.
func (s store) FindVehicleByPlate(ctx context.Context, clientID int64, plate string) (*domain.Vehicle, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, client_id, plate, model, year
		FROM vehicles
		WHERE client_id = $1 AND upper(plate) = upper($2)
		ORDER BY id
		LIMIT 1
	`, clientID, plate)
	v, err := scanVehicleRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find vehicle by plate: %w", err)
	}
	return &v, nil
}

// CreateVehicle inserts the vehicle. A positive ID is kept as is.
func (s store) CreateVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO vehicles (id, client_id, plate, model, year)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('vehicles', 'id'))),
			$2, $3, $4, $5
		)
		RETURNING id, client_id, plate, model, year
	`, nullableID(v.ID), v.ClientID, v.Plate, v.Model, v.Year)
	created, err := scanVehicleRow(row)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("create vehicle: %w", mapWriteError(err))
	}
	return created, nil
}

func (s store) UpdateVehicle(ctx context.Context, v domain.Vehicle) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE vehicles
		SET plate = $2, model = $3, year = $4
		WHERE id = $1
	`, v.ID, v.Plate, v.Model, v.Year)
	if err != nil {
		return fmt.Errorf("update vehicle %d: %w", v.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVehicle removes a vehicle of the client. Its work orders and
// appointments are kept without the vehicle link.
func (s store) DeleteVehicle(ctx context.Context, clientID, vehicleID int64) error {
	if _, err := s.q.Exec(ctx, "UPDATE work_orders SET vehicle_id = NULL WHERE vehicle_id = $1", vehicleID); err != nil {
		return fmt.Errorf("unlink work orders from vehicle %d: %w", vehicleID, err)
	}
	if _, err := s.q.Exec(ctx, "UPDATE appointments SET vehicle_id = NULL WHERE vehicle_id = $1", vehicleID); err != nil {
		return fmt.Errorf("unlink appointments from vehicle %d: %w", vehicleID, err)
	}
	cmd, err := s.q.Exec(ctx, "DELETE FROM vehicles WHERE id = $1 AND client_id = $2", vehicleID, clientID)
	if err != nil {
		return fmt.Errorf("delete vehicle %d: %w", vehicleID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TransferVehicle moves a vehicle to another client. Work orders of the
// vehicle that belonged to the previous owner follow it.
func (s store) TransferVehicle(ctx context.Context, fromClientID, vehicleID, toClientID int64) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE vehicles SET client_id = $3
		WHERE id = $1 AND client_id = $2
	`, vehicleID, fromClientID, toClientID)
	if err != nil {
		return fmt.Errorf("transfer vehicle %d: %w", vehicleID, mapWriteError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := s.q.Exec(ctx, `
		UPDATE work_orders SET client_id = $3, updated_at = NOW()
		WHERE vehicle_id = $1 AND client_id = $2
	`, vehicleID, fromClientID, toClientID); err != nil {
		return fmt.Errorf("move work orders of vehicle %d: %w", vehicleID, err)
	}
	return nil
}

func scanClientRow(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Document, &c.Address, &c.CreatedAt); err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func scanVehicleRow(row pgx.Row) (domain.Vehicle, error) {
	var (
		v    domain.Vehicle
		year sql.NullInt32
	)
	if err := row.Scan(&v.ID, &v.ClientID, &v.Plate, &v.Model, &year); err != nil {
		return domain.Vehicle{}, err
	}
	if year.Valid {
		value := int(year.Int32)
		v.Year = &value
	}
	return v, nil
}
