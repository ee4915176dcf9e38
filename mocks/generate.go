package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/rxtech-lab/argo-dca/internal/exchange Exchange
//go:generate mockgen -destination=./mock_repository.go -package=mocks github.com/rxtech-lab/argo-dca/internal/position Repository
