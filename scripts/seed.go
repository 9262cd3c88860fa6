package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medgrid/bedbridge/backend/internal/adapters/database"
	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/postgres"
	"github.com/medgrid/bedbridge/backend/pkg/config"
)

type seedHospital struct {
	ID       string
	Code     string
	Name     string
	Address  entities.Address
	Location entities.Location
	Phone    string
	Beds     map[entities.BedType]int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				transfer_requests,
				bed_ledger,
				beds,
				hospitals
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	hospitals := []seedHospital{
		{
			ID:   "lasuth",
			Code: "LASUTH",
			Name: "Lagos State University Teaching Hospital",
			Address: entities.Address{
				Street: "1-5 Oba Akinjobi Way", City: "Ikeja", State: "Lagos", ZipCode: "100271", Country: "Nigeria",
			},
			Location: entities.Location{Latitude: 6.5967, Longitude: 3.3421},
			Phone:    "+234-1-7743864",
			Beds: map[entities.BedType]int{
				entities.BedTypeGeneral:    40,
				entities.BedTypeICU:        8,
				entities.BedTypeVentilator: 4,
				entities.BedTypeIsolation:  6,
			},
		},
		{
			ID:   "gh-lagos",
			Code: "GHLAGOS",
			Name: "General Hospital Lagos",
			Address: entities.Address{
				Street: "1-3 Broad Street, Odan", City: "Lagos Island", State: "Lagos", ZipCode: "101221", Country: "Nigeria",
			},
			Location: entities.Location{Latitude: 6.4531, Longitude: 3.3958},
			Phone:    "+234-1-2635380",
			Beds: map[entities.BedType]int{
				entities.BedTypeGeneral: 30,
				entities.BedTypeICU:     4,
				entities.BedTypePrivate: 10,
			},
		},
		{
			ID:   "gh-ikorodu",
			Code: "GHIKORODU",
			Name: "General Hospital Ikorodu",
			Address: entities.Address{
				Street: "T.O.S. Benson Road", City: "Ikorodu", State: "Lagos", ZipCode: "104101", Country: "Nigeria",
			},
			Location: entities.Location{Latitude: 6.5965, Longitude: 3.5075},
			Phone:    "+234-1-4533257",
			Beds: map[entities.BedType]int{
				entities.BedTypeGeneral:   25,
				entities.BedTypeIsolation: 4,
			},
		},
		{
			ID:   "fmc-abeokuta",
			Code: "FMCABK",
			Name: "Federal Medical Centre Abeokuta",
			Address: entities.Address{
				Street: "Idi-Aba", City: "Abeokuta", State: "Ogun", ZipCode: "110101", Country: "Nigeria",
			},
			Location: entities.Location{Latitude: 7.1475, Longitude: 3.3619},
			Phone:    "+234-39-243719",
			Beds: map[entities.BedType]int{
				entities.BedTypeGeneral:    35,
				entities.BedTypeICU:        6,
				entities.BedTypeVentilator: 2,
			},
		},
		{
			ID:   "uch-ibadan",
			Code: "UCHIBADAN",
			Name: "University College Hospital Ibadan",
			Address: entities.Address{
				Street: "Queen Elizabeth Road", City: "Ibadan", State: "Oyo", ZipCode: "200285", Country: "Nigeria",
			},
			Location: entities.Location{Latitude: 7.4029, Longitude: 3.9060},
			Phone:    "+234-2-2413922",
			Beds: map[entities.BedType]int{
				entities.BedTypeGeneral:     50,
				entities.BedTypeICU:         10,
				entities.BedTypeVentilator:  6,
				entities.BedTypeSemiPrivate: 12,
			},
		},
	}

	bedRepo := database.NewBedAdapter(pgClient)
	ledgerRepo := database.NewBedLedgerAdapter(pgClient)
	hospitalRepo := database.NewHospitalAdapter(pgClient)
	syncService := services.NewLedgerSyncService(bedRepo, ledgerRepo, hospitalRepo, nil)

	for _, h := range hospitals {
		_, err := db.ExecContext(
			ctx,
			`INSERT INTO hospitals (id, code, name, street, city, state, zip_code, country,
				latitude, longitude, phone_number, email, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true, NOW(), NOW())
			 ON CONFLICT (id) DO NOTHING`,
			h.ID, h.Code, h.Name,
			h.Address.Street, h.Address.City, h.Address.State, h.Address.ZipCode, h.Address.Country,
			h.Location.Latitude, h.Location.Longitude,
			h.Phone, h.Code+"@bedbridge.example.org",
		)
		if err != nil {
			log.Printf("Failed to create hospital %s: %v", h.Name, err)
			continue
		}

		// Roughly a third of seeded beds start occupied so transfer
		// candidates rank in an interesting order out of the box.
		for bedType, count := range h.Beds {
			for i := 0; i < count; i++ {
				status := entities.BedStatusAvailable
				if i%3 == 0 {
					status = entities.BedStatusOccupied
				}
				bed := &entities.Bed{
					ID:         uuid.New().String(),
					HospitalID: h.ID,
					BedNumber:  fmt.Sprintf("%s-%02d", strings.ToUpper(string(bedType)), i+1),
					BedType:    bedType,
					Status:     status,
					Ward:       string(bedType) + " ward",
					CreatedAt:  time.Now(),
					UpdatedAt:  time.Now(),
				}
				if err := bedRepo.Create(ctx, bed); err != nil {
					log.Printf("Failed to create %s bed for %s: %v", bedType, h.Name, err)
				}
			}
		}

		if err := syncService.Resync(ctx, h.ID, ""); err != nil {
			log.Printf("Failed to sync ledger for %s: %v", h.Name, err)
		}
	}

	log.Println("Seeding completed successfully")
}
