package service

import (
	"context"
	"strings"

	"oficina/internal/domain"
	"oficina/internal/repository"
)

type ClientInput struct {
	Name     string
	Phone    string
	Document string
	Address  string
}

type VehicleInput struct {
	Plate string
	Model string
	Year  *int
}

// ClientDetail is a client with its vehicles and work orders.
type ClientDetail struct {
	domain.Client
	Vehicles   []domain.Vehicle   `json:"vehicles"`
	WorkOrders []domain.WorkOrder `json:"work_orders"`
}

// ListClients returns the latest 100 clients when search is blank.
func (s *Service) ListClients(ctx context.Context, search string) ([]domain.Client, error) {
	return s.repo.ListClients(ctx, repository.ClientFilter{Search: search, Limit: 100})
}

func (s *Service) SearchClients(ctx context.Context, search string) ([]domain.ClientLookup, error) {
	return s.repo.SearchClients(ctx, search, 20)
}

func (s *Service) GetClient(ctx context.Context, id int64) (ClientDetail, error) {
	client, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return ClientDetail{}, err
	}
	vehicles, err := s.repo.ListVehicles(ctx, id)
	if err != nil {
		return ClientDetail{}, err
	}
	orders, err := s.repo.ListWorkOrders(ctx, repository.WorkOrderFilter{ClientID: &id})
	if err != nil {
		return ClientDetail{}, err
	}
	return ClientDetail{Client: *client, Vehicles: vehicles, WorkOrders: orders}, nil
}

func (s *Service) CreateClient(ctx context.Context, input ClientInput) (domain.Client, error) {
	client, err := clientFromInput(input)
	if err != nil {
		return domain.Client{}, err
	}
	return s.repo.CreateClient(ctx, client)
}

func (s *Service) UpdateClient(ctx context.Context, id int64, input ClientInput) (domain.Client, error) {
	client, err := clientFromInput(input)
	if err != nil {
		return domain.Client{}, err
	}
	client.ID = id
	return s.repo.UpdateClient(ctx, client)
}

func clientFromInput(input ClientInput) (domain.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Client{}, invalid("name is required")
	}
	return domain.Client{
		Name:     name,
		Phone:    strings.TrimSpace(input.Phone),
		Document: strings.TrimSpace(input.Document),
		Address:  strings.TrimSpace(input.Address),
	}, nil
}

func (s *Service) ListVehicles(ctx context.Context, clientID int64) ([]domain.Vehicle, error) {
	if _, err := s.repo.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListVehicles(ctx, clientID)
}

func (s *Service) AddVehicle(ctx context.Context, clientID int64, input VehicleInput) (domain.Vehicle, error) {
	plate := normalizePlate(input.Plate)
	model := strings.TrimSpace(input.Model)
	if plate == "" && model == "" {
		return domain.Vehicle{}, invalid("plate or model is required")
	}
	if _, err := s.repo.GetClient(ctx, clientID); err != nil {
		return domain.Vehicle{}, err
	}
	return s.repo.CreateVehicle(ctx, domain.Vehicle{
		ClientID: clientID,
		Plate:    plate,
		Model:    model,
		Year:     input.Year,
	})
}

// DeleteVehicle removes the vehicle and keeps its work orders unlinked.
func (s *Service) DeleteVehicle(ctx context.Context, clientID, vehicleID int64) error {
	return s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		return tx.DeleteVehicle(ctx, clientID, vehicleID)
	})
}

// TransferVehicle moves a vehicle and its orders to another client.
func (s *Service) TransferVehicle(ctx context.Context, fromClientID, vehicleID, toClientID int64) error {
	if fromClientID == toClientID {
		return invalid("vehicle already belongs to client %d", toClientID)
	}
	return s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		if _, err := tx.GetClient(ctx, toClientID); err != nil {
			return err
		}
		vehicle, err := tx.GetVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.ClientID != fromClientID {
			return invalid("vehicle %d does not belong to client %d", vehicleID, fromClientID)
		}
		return tx.TransferVehicle(ctx, fromClientID, vehicleID, toClientID)
	})
}

func normalizePlate(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
