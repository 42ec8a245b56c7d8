package memory

import (
	"account_onboarding/internal/repository"
)

var (
	_ repository.AccountRequestRepository = (*AccountRequestRepository)(nil)
)
