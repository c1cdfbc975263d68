package report

import (
	"fmt"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
)

// Archive stores finished runs somewhere other than the output directory.
type Archive interface {
	Store(sum *Summary, iterations []sizing.IterationRecord) error
	Close()
}

// Archive collections.
const (
	archiveDB      = "fpgasize"
	runsColl       = "runs"
	iterationsColl = "iterations"
)

// MongoArchive keeps run summaries and iteration records in MongoDB.
type MongoArchive struct {
	session *mgo.Session
	db      string
}

// NewMongoArchive dials url. The database named in url is used, or
// "fpgasize" when url names none.
func NewMongoArchive(url string, timeout time.Duration) (*MongoArchive, error) {
	info, err := mgo.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing mongo url: %w", err)
	}
	info.Timeout = timeout
	s, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	db := info.Database
	if db == "" {
		db = archiveDB
	}
	return &MongoArchive{session: s, db: db}, nil
}

// Store inserts the summary and one document per iteration.
func (m *MongoArchive) Store(sum *Summary, iterations []sizing.IterationRecord) error {
	s := m.session.Copy()
	defer s.Close()

	if err := s.DB(m.db).C(runsColl).Insert(sum); err != nil {
		return err
	}
	docs := make([]interface{}, 0, len(iterations))
	for _, r := range iterations {
		docs = append(docs, iterationDoc(sum.RunID, r))
	}
	if len(docs) == 0 {
		return nil
	}
	return s.DB(m.db).C(iterationsColl).Insert(docs...)
}

func iterationDoc(runID string, r sizing.IterationRecord) bson.M {
	return bson.M{
		"run":       runID,
		"iteration": r.Iteration,
		"area":      r.Area,
		"delay":     r.Delay,
		"cost":      r.Cost,
		"skipped":   r.Skipped,
		"delays":    r.Delays,
		"sizes":     r.Sizes,
	}
}

// Close ends the session.
func (m *MongoArchive) Close() {
	m.session.Close()
}
