package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPingMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestConnectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ConnectionConfig
		wantErr bool
	}{
		{"valid", ConnectionConfig{PrimaryURL: "postgres://localhost/db", MaxConns: 20, MinConns: 5}, false},
		{"min equals max", ConnectionConfig{PrimaryURL: "postgres://localhost/db", MaxConns: 10, MinConns: 10}, false},
		{"missing url", ConnectionConfig{MaxConns: 10}, true},
		{"zero max", ConnectionConfig{PrimaryURL: "postgres://localhost/db", MaxConns: 0}, true},
		{"min exceeds max", ConnectionConfig{PrimaryURL: "postgres://localhost/db", MaxConns: 10, MinConns: 20}, true},
		{"negative min", ConnectionConfig{PrimaryURL: "postgres://localhost/db", MaxConns: 10, MinConns: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionConfig_ReplicaMaxConns(t *testing.T) {
	assert.Equal(t, 10, ConnectionConfig{MaxConns: 20}.replicaMaxConns())
	assert.Equal(t, 2, ConnectionConfig{MaxConns: 3}.replicaMaxConns())
}

func TestNewConnectionManager_InvalidConfig(t *testing.T) {
	cm, err := NewConnectionManager(ConnectionConfig{}, nil)
	assert.Error(t, err)
	assert.Nil(t, cm)
	assert.Contains(t, err.Error(), "invalid connection config")
}

func TestNewConnectionManager_UnreachablePrimary(t *testing.T) {
	cm, err := NewConnectionManager(ConnectionConfig{
		PrimaryURL: "postgres://nonexistent.invalid:9999/clientbill?connect_timeout=1&sslmode=disable",
		MaxConns:   4,
		MinConns:   1,
		Timeout:    2 * time.Second,
	}, nil)
	assert.Error(t, err)
	assert.Nil(t, cm)
	assert.Contains(t, err.Error(), "failed to ping primary")
}

func TestConnectionManager_Replica(t *testing.T) {
	t.Run("falls back to primary", func(t *testing.T) {
		primary := &sql.DB{}
		cm := &ConnectionManager{primary: primary}
		assert.Same(t, primary, cm.Replica())
	})

	t.Run("round robin", func(t *testing.T) {
		r1, r2, r3 := &sql.DB{}, &sql.DB{}, &sql.DB{}
		cm := &ConnectionManager{primary: &sql.DB{}, replicas: []*sql.DB{r1, r2, r3}}

		selections := make(map[*sql.DB]int)
		for i := 0; i < 30; i++ {
			selections[cm.Replica()]++
		}
		assert.Equal(t, 10, selections[r1])
		assert.Equal(t, 10, selections[r2])
		assert.Equal(t, 10, selections[r3])
	})

	t.Run("concurrent selection", func(t *testing.T) {
		r1, r2 := &sql.DB{}, &sql.DB{}
		cm := &ConnectionManager{primary: &sql.DB{}, replicas: []*sql.DB{r1, r2}}

		var wg sync.WaitGroup
		results := make(chan *sql.DB, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- cm.Replica()
			}()
		}
		wg.Wait()
		close(results)

		selections := make(map[*sql.DB]int)
		for db := range results {
			selections[db]++
		}
		assert.Equal(t, 50, selections[r1])
		assert.Equal(t, 50, selections[r2])
	})
}

func TestConnectionManager_AllReplicasReturnsCopy(t *testing.T) {
	r1 := &sql.DB{}
	cm := &ConnectionManager{primary: &sql.DB{}, replicas: []*sql.DB{r1}}

	first := cm.AllReplicas()
	first[0] = &sql.DB{}
	assert.Same(t, r1, cm.AllReplicas()[0])
}

func TestConnectionManager_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		primary, pm := newPingMock(t)
		replica, rm := newPingMock(t)
		pm.ExpectPing()
		rm.ExpectPing()

		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{replica}}
		assert.NoError(t, cm.HealthCheck(context.Background()))
		assert.NoError(t, pm.ExpectationsWereMet())
		assert.NoError(t, rm.ExpectationsWereMet())
	})

	t.Run("primary down", func(t *testing.T) {
		primary, pm := newPingMock(t)
		pm.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primary}
		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("some replicas down", func(t *testing.T) {
		primary, pm := newPingMock(t)
		r1, m1 := newPingMock(t)
		r2, m2 := newPingMock(t)
		pm.ExpectPing()
		m1.ExpectPing()
		m2.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1, r2}}
		assert.NoError(t, cm.HealthCheck(context.Background()))
	})

	t.Run("all replicas down", func(t *testing.T) {
		primary, pm := newPingMock(t)
		r1, m1 := newPingMock(t)
		pm.ExpectPing()
		m1.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1}}
		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all replicas unhealthy: replica-0")
	})
}

func TestConnectionManager_RemoveUnhealthyReplicas(t *testing.T) {
	r1, m1 := newPingMock(t)
	r2, m2 := newPingMock(t)
	m1.ExpectPing()
	m2.ExpectPing().WillReturnError(errors.New("gone"))
	m2.ExpectClose()

	cm := &ConnectionManager{primary: &sql.DB{}, replicas: []*sql.DB{r1, r2}}
	removed := cm.RemoveUnhealthyReplicas(context.Background())

	assert.Equal(t, 1, removed)
	assert.Equal(t, []*sql.DB{r1}, cm.AllReplicas())
	assert.NoError(t, m2.ExpectationsWereMet())
}

func TestConnectionManager_Close(t *testing.T) {
	t.Run("closes everything", func(t *testing.T) {
		primary, pm := newPingMock(t)
		replica, rm := newPingMock(t)
		pm.ExpectClose()
		rm.ExpectClose()

		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{replica}}
		assert.NoError(t, cm.Close())
		assert.Empty(t, cm.AllReplicas())
		assert.NoError(t, pm.ExpectationsWereMet())
		assert.NoError(t, rm.ExpectationsWereMet())
	})

	t.Run("reports close errors", func(t *testing.T) {
		primary, pm := newPingMock(t)
		pm.ExpectClose().WillReturnError(errors.New("boom"))

		cm := &ConnectionManager{primary: primary}
		err := cm.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary close error")
	})
}
