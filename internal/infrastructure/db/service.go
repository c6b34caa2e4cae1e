package db

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ledgercore/ledgerd/internal/core/ports"
	badgerdb "github.com/ledgercore/ledgerd/internal/infrastructure/db/badger"
	inmemorydb "github.com/ledgercore/ledgerd/internal/infrastructure/db/inmemory"
)

var dataStoreTypes = map[string]func(...interface{}) (ports.RepoManager, error){
	"badger": badgerdb.NewRepoManager,
	"inmemory": func(...interface{}) (ports.RepoManager, error) {
		return inmemorydb.NewRepoManager(), nil
	},
}

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	factory, ok := dataStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	manager, err := factory(config.DataStoreConfig...)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened %s ledger store", config.DataStoreType)
	return manager, nil
}
