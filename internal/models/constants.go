package models

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	// DefaultSessionTTL время жизни сессии бронирования в хранилище
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// DefaultSearchRateLimit количество поисков рейсов в окне на сессию
	DefaultSearchRateLimit = 10

	// DefaultSearchRateWindow окно ограничения частоты поисков
	DefaultSearchRateWindow = 60 // 1 минута в секундах

	// PredictionCacheTTL время жизни кэша прогнозов цен
	PredictionCacheTTL = 60 * 60 // 1 час в секундах

	// TransactionPrefix префикс идентификатора транзакции
	TransactionPrefix = "TXN"

	// MaxPassengers максимальное число пассажиров в одном поиске
	MaxPassengers = 9
)
