// Package journal records the lines a node reads and writes, for inspecting a
// test run after the fact.
//
// Records are stored in a badger database under keys of the form
// <run-id>_<seq>, so the records of one process stay contiguous and ordered.
// Values are canonical JSON. A journal is write-only from the node's point of
// view: nothing is ever restored from it.
package journal

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/maelnode/src/common"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// Direction tells whether a line was read or written by the node.
type Direction string

const (
	// Inbound lines were read from the node's input.
	Inbound Direction = "in"
	// Outbound lines were written to the node's output.
	Outbound Direction = "out"
)

// Record is one journaled line.
type Record struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Direction Direction `json:"direction"`
	Timestamp int64     `json:"timestamp"`
	Line      string    `json:"line"`
}

// Time returns the moment the record was appended.
func (r *Record) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}

// Marshal - canonical json encoding of Record
func (r *Record) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *Record) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(r)
}

// Journal appends Records for a single run to a badger database, and reads
// back the records of any run stored in it.
type Journal struct {
	sync.Mutex

	db    *badger.DB
	path  string
	runID string
	seq   uint64
}

// Open opens the database in path, creating it if needed. Records appended
// through the returned Journal belong to runID, which must not contain '_'.
func Open(path string, runID string, logger *logrus.Entry) (*Journal, error) {
	if strings.Contains(runID, "_") {
		return nil, fmt.Errorf("journal: invalid run id %q", runID)
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Journal{
		db:    handle,
		path:  path,
		runID: runID,
	}, nil
}

func recordKey(runID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", runID, seq))
}

func runPrefix(runID string) []byte {
	return []byte(runID + "_")
}

// RunID returns the run under which Append stores records.
func (j *Journal) RunID() string {
	return j.runID
}

// Path returns the database directory.
func (j *Journal) Path() string {
	return j.path
}

// Append stores line under the next sequence number of the run.
func (j *Journal) Append(dir Direction, line []byte) error {
	j.Lock()
	defer j.Unlock()

	j.seq++

	rec := Record{
		RunID:     j.runID,
		Seq:       j.seq,
		Direction: dir,
		Timestamp: time.Now().UnixNano(),
		Line:      string(bytes.TrimRight(line, "\r\n")),
	}

	val, err := rec.Marshal()
	if err != nil {
		return err
	}

	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(j.runID, j.seq), val)
	})
}

// Records returns the records of runID in the order they were appended. It
// returns a KeyNotFound StoreErr if the run has no records.
func (j *Journal) Records(runID string) ([]Record, error) {
	res := []Record{}
	prefix := runPrefix(runID)

	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var rec Record
			if err := rec.Unmarshal(val); err != nil {
				return err
			}
			res = append(res, rec)
		}
		return nil
	})

	if err == nil && len(res) == 0 {
		err = common.NewStoreErr("Journal", common.KeyNotFound, runID)
	}

	return res, err
}

// Runs returns the sorted ids of every run stored in the database. It returns
// an Empty StoreErr if the database holds no records.
func (j *Journal) Runs() ([]string, error) {
	seen := make(map[string]bool)
	runs := []string{}

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			i := strings.LastIndex(key, "_")
			if i < 0 {
				continue
			}
			if run := key[:i]; !seen[run] {
				seen[run] = true
				runs = append(runs, run)
			}
		}
		return nil
	})

	sort.Strings(runs)

	if err == nil && len(runs) == 0 {
		err = common.NewStoreErr("Journal", common.Empty, j.path)
	}

	return runs, err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
