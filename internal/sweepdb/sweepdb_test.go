package sweepdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDummyConnection(t *testing.T) {
	db := DummyDBConnection()
	assert.False(t, db.IsConnected())
	assert.NoError(t, db.Err())

	// Every operation on an unconnected database is a no-op.
	db.RecordSweep(&SweepMessage{ID: "x", Sweep: 1, Completed: time.Now()})
	db.RecordSweep(nil)
	db.Disconnect()
	db.Wait()
}

func TestNilConnection(t *testing.T) {
	var db *Connection
	assert.False(t, db.IsConnected())
	assert.NoError(t, db.Err())
	db.RecordSweep(&SweepMessage{})
}

func TestServerAddr(t *testing.T) {
	t.Setenv("KINEGRAPH_DB_ADDR", "")
	assert.Equal(t, []string{defaultAddr}, serverAddr())
	t.Setenv("KINEGRAPH_DB_ADDR", "db1:9000,db2:9000")
	assert.Equal(t, []string{"db1:9000", "db2:9000"}, serverAddr())
}
