package postgres

import (
	"database/sql"

	"github.com/ibndev/citystaff-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.DispatchOfferRepository
	repository.ProviderRepository
	repository.UserRepository
	repository.CatalogRepository
	repository.WalletRepository
	repository.SettingsRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                      db,
		BookingRepository:       NewBookingRepository(db),
		DispatchOfferRepository: NewDispatchOfferRepository(db),
		ProviderRepository:      NewProviderRepository(db),
		UserRepository:          NewUserRepository(db),
		CatalogRepository:       NewCatalogRepository(db),
		WalletRepository:        NewWalletRepository(db),
		SettingsRepository:      NewSettingsRepository(db),
		NotificationRepository:  NewNotificationRepository(db),
	}
}
