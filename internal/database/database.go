package database

import (
	client "costwatch/internal/database/client"
	fluentdRepo "costwatch/internal/database/fluentd/repository"
	mongoRepo "costwatch/internal/database/mongodb/repository"

	"github.com/google/wire"
)

// ProviderSet 定義所有 DB Client 的依賴
var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
