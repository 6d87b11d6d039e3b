// Package sweepdb records program activity and completed sweeps in a ClickHouse database.
package sweepdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Connection holds an open ClickHouse connection and the goroutine that serializes inserts.
type Connection struct {
	conn          clickhouse.Conn
	err           error
	activityEntry *ActivityMessage
	sweepmsg      chan *SweepMessage
	sync.WaitGroup
}

const (
	databaseName = "kinegraph" // official SQL name of the database
	defaultAddr  = "localhost:9000"
	timeFormat   = "2006-01-02 15:04:05.000000"
)

// IsConnected is true when the connection was opened and no insert has failed.
// It is safe to call on a nil *Connection.
func (db *Connection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// Err returns the error that closed the connection, if any.
func (db *Connection) Err() error {
	if db == nil {
		return nil
	}
	return db.err
}

// PingServer opens a connection and prints the server version.
func PingServer() error {
	db := createDBConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected: %w", db.err)
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	db.conn.Close()
	return nil
}

// StartDBConnection opens the database, logs the activity entry, and starts
// the goroutine that handles sweep records until abort is closed.
// If the server is unreachable the returned connection is not connected and
// all Record calls are no-ops.
func StartDBConnection(activity *ActivityMessage, abort <-chan struct{}) *Connection {
	db := createDBConnection()
	db.activityEntry = activity
	db.logActivity()
	if db.conn != nil {
		go db.handleConnection(abort)
	}
	return db
}

// DummyDBConnection returns a never-connected Connection whose Wait returns at once.
func DummyDBConnection() *Connection {
	return &Connection{}
}

// serverAddr reads the server address from KINEGRAPH_DB_ADDR.
func serverAddr() []string {
	addr := os.Getenv("KINEGRAPH_DB_ADDR")
	if addr == "" {
		return []string{defaultAddr}
	}
	return strings.Split(addr, ",")
}

func createDBConnection() *Connection {
	db := &Connection{}
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: os.Getenv("KINEGRAPH_DB_USER"),
		Password: os.Getenv("KINEGRAPH_DB_PASSWORD"),
	}
	client := clickhouse.ClientInfo{
		Products: []struct {
			Name    string
			Version string
		}{
			{Name: "kinegraph", Version: "unknown"},
		},
	}
	opt := clickhouse.Options{
		Addr:        serverAddr(),
		Auth:        auth,
		ClientInfo:  client,
		DialTimeout: 2 * time.Second,
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}

	ctx := context.Background()
	if err = conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		conn.Close()
		db.err = err
		return db
	}
	db.conn = conn
	db.Add(1)
	db.sweepmsg = make(chan *SweepMessage)
	return db
}

func (db *Connection) logActivity() {
	if !db.IsConnected() || db.activityEntry == nil {
		return
	}
	ctx := context.Background()
	const nowait = false
	ae := db.activityEntry
	formattedStart := ae.Start.Format(timeFormat)
	formattedEnd := ae.End.Format(timeFormat)
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO kinegraphactivity VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		ae.ID, ae.Hostname, ae.Githash, ae.Version,
		ae.GoVersion, ae.CPUs, formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into kinegraphactivity ", err)
		db.err = err
	}
}

func (db *Connection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			db.Disconnect()
			return
		case msg := <-db.sweepmsg:
			db.handleSweepMessage(msg)
		}
	}
}

// Disconnect stamps the activity entry with its end time and closes the connection.
func (db *Connection) Disconnect() {
	if db.IsConnected() {
		if db.activityEntry != nil {
			db.activityEntry.End = time.Now()
			db.logActivity()
		}
		db.conn.Close()
	}
}

// RecordSweep stores a SweepMessage in the DB (if it's open). It does not
// block the caller.
func (db *Connection) RecordSweep(msg *SweepMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	go func() { db.sweepmsg <- msg }()
}

func (db *Connection) handleSweepMessage(m *SweepMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	activityID := ""
	if db.activityEntry != nil {
		activityID = db.activityEntry.ID
	}
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO sweeps VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.ID, activityID, m.Sweep, m.Clock, m.Ticks, m.Radius, m.DiffMode, m.Acceleration,
		m.Files, m.Started.Format(timeFormat), m.Completed.Format(timeFormat),
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into sweeps ", err)
		db.err = err
	}
}
