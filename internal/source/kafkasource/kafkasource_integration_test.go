//go:build integration

package kafkasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"stockroom/internal/repository"
	"stockroom/pkg/model"
	"stockroom/pkg/platform/sentinel"
	"stockroom/pkg/testutil/containers"
)

type part struct {
	model.Unsearchable
	model.VerbatimTerms
	Number string
	Count  uint64
}

func (p *part) ID() string { return p.Number }

func (p *part) MergeWith(other part) { p.Count += other.Count }

type partRow struct {
	Number string `json:"number"`
	Count  uint64 `json:"count"`
}

func (r partRow) Validate() error {
	if r.Number == "" {
		return errors.New("number is required")
	}
	return nil
}

func toPart(r partRow) part { return part{Number: r.Number, Count: r.Count} }

type KafkaSourceSuite struct {
	suite.Suite
	ctx     context.Context
	brokers []string
}

func TestKafkaSourceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSourceSuite))
}

func (s *KafkaSourceSuite) SetupSuite() {
	s.ctx = context.Background()
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

// topic creates a fresh topic with the given partitions and produces values to it.
func (s *KafkaSourceSuite) topic(partitions int32, values ...string) string {
	name := "parts-" + uuid.NewString()
	client, err := kgo.NewClient(kgo.SeedBrokers(s.brokers...), kgo.RecordPartitioner(kgo.RoundRobinPartitioner()))
	s.Require().NoError(err)
	defer client.Close()

	_, err = kadm.NewClient(client).CreateTopic(s.ctx, partitions, 1, nil, name)
	s.Require().NoError(err)

	records := make([]*kgo.Record, 0, len(values))
	for _, v := range values {
		records = append(records, &kgo.Record{Topic: name, Value: []byte(v)})
	}
	s.Require().NoError(client.ProduceSync(s.ctx, records...).FirstErr())
	return name
}

func (s *KafkaSourceSuite) TestReplayStopsAtEndOffsets() {
	name := s.topic(3,
		`{"number":"p-1","count":2}`,
		`{"number":"p-2","count":1}`,
		`not json`,
		`{"count":4}`,
		`{"number":"p-1","count":3}`,
	)

	var skipped []error
	src := New(s.brokers, name, toPart, WithSkipFunc(func(err error) { skipped = append(skipped, err) }))
	repo, err := repository.Fold[string, part](s.ctx, src)
	s.Require().NoError(err)

	s.Equal(2, repo.Len())
	got, ok := repo.Get("p-1")
	s.Require().True(ok)
	s.Equal(uint64(5), got.Count)

	s.Require().Len(skipped, 2)
	for _, err := range skipped {
		s.ErrorIs(err, sentinel.ErrMalformed)
	}
}

func (s *KafkaSourceSuite) TestEmptyTopic() {
	name := s.topic(1)
	repo, err := repository.Fold[string, part](s.ctx, New(s.brokers, name, toPart))
	s.Require().NoError(err)
	s.Zero(repo.Len())
}

func (s *KafkaSourceSuite) TestTrailingTransactionMarker() {
	name := s.topic(1, `{"number":"p-1","count":2}`)

	producer, err := kgo.NewClient(kgo.SeedBrokers(s.brokers...), kgo.TransactionalID("stock-"+uuid.NewString()))
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(producer.BeginTransaction())
	s.Require().NoError(producer.ProduceSync(s.ctx, &kgo.Record{Topic: name, Value: []byte(`{"number":"p-1","count":3}`)}).FirstErr())
	s.Require().NoError(producer.EndTransaction(s.ctx, kgo.TryCommit))

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	repo, err := repository.Fold[string, part](ctx, New(s.brokers, name, toPart))
	s.Require().NoError(err)
	s.Require().NoError(ctx.Err(), "replay must end at the commit marker")
	got, ok := repo.Get("p-1")
	s.Require().True(ok)
	s.Equal(uint64(5), got.Count)
}
