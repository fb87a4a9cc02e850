// Package kafkasource reads records from a Kafka topic whose values are JSON
// documents. Each load is a bounded replay: it reads every partition from its
// earliest retained offset up to the end offset observed when the load began.
package kafkasource

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"stockroom/internal/repository"
	"stockroom/internal/source/record"
	"stockroom/pkg/platform/sentinel"
)

// Source replays topic into records of type T via the row shape R.
type Source[R, T any] struct {
	brokers []string
	topic   string
	convert func(R) T
	extra   []kgo.Opt
	onSkip  repository.SkipFunc
}

type Option func(*settings)

type settings struct {
	extra  []kgo.Opt
	onSkip repository.SkipFunc
}

// WithClientOpts passes additional options to the franz-go client, such as
// SASL or TLS settings.
func WithClientOpts(opts ...kgo.Opt) Option {
	return func(s *settings) {
		s.extra = append(s.extra, opts...)
	}
}

// WithSkipFunc reports messages the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

func New[R, T any](brokers []string, topic string, convert func(R) T, opts ...Option) Source[R, T] {
	var cfg settings
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Source[R, T]{brokers: brokers, topic: topic, convert: convert, extra: cfg.extra, onSkip: cfg.onSkip}
}

// Records connects, snapshots the partition offsets and returns a sequence
// that consumes up to them. The sequence closes the client.
func (s Source[R, T]) Records(ctx context.Context) (iter.Seq[T], error) {
	opts := append([]kgo.Opt{
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.KeepControlRecords(),
	}, s.extra...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, s.unavailable(err)
	}

	remaining, err := s.bounds(ctx, kadm.NewClient(client))
	if err != nil {
		client.Close()
		return nil, s.unavailable(err)
	}

	return func(yield func(T) bool) {
		defer client.Close()
		for !remaining.done() {
			fetches := client.PollFetches(ctx)
			if fetches.IsClientClosed() {
				return
			}
			if errs := fetches.Errors(); len(errs) > 0 {
				s.skip(record.Interrupted(s.topic, errs[0].Err))
				return
			}
			for it := fetches.RecordIter(); !it.Done(); {
				r := it.Next()
				if !remaining.consume(r.Partition, r.Offset) || r.Attrs.IsControl() {
					continue
				}
				var row R
				err := json.Unmarshal(r.Value, &row)
				if err == nil {
					err = record.Validate(row)
				}
				if err != nil {
					s.skip(record.Malformed(fmt.Sprintf("%s/%d@%d", r.Topic, r.Partition, r.Offset), err))
					continue
				}
				if !yield(s.convert(row)) {
					return
				}
			}
			fetches.EachPartition(func(p kgo.FetchTopicPartition) {
				remaining.truncate(p.Partition, p.LogStartOffset)
			})
		}
	}, nil
}

// progress maps each partition still being replayed to its end offset.
type progress map[int32]int64

// consume reports whether offset lies before the partition's end and retires
// the partition once its last offset is consumed. Control records count, so a
// trailing transaction marker still ends the partition.
func (p progress) consume(partition int32, offset int64) bool {
	end, ok := p[partition]
	if !ok || offset >= end {
		return false
	}
	if offset+1 >= end {
		delete(p, partition)
	}
	return true
}

// truncate retires a partition whose log now starts at or past its end, as
// after retention deleted the records that were there when the load began.
func (p progress) truncate(partition int32, logStart int64) {
	if end, ok := p[partition]; ok && logStart >= end {
		delete(p, partition)
	}
}

func (p progress) done() bool { return len(p) == 0 }

// bounds returns the end offset of every partition that holds records.
func (s Source[R, T]) bounds(ctx context.Context, adm *kadm.Client) (progress, error) {
	starts, err := adm.ListStartOffsets(ctx, s.topic)
	if err != nil {
		return nil, err
	}
	if err := starts.Error(); err != nil {
		return nil, err
	}
	ends, err := adm.ListEndOffsets(ctx, s.topic)
	if err != nil {
		return nil, err
	}
	if err := ends.Error(); err != nil {
		return nil, err
	}

	remaining := make(progress)
	ends.Each(func(o kadm.ListedOffset) {
		start, ok := starts.Lookup(o.Topic, o.Partition)
		if ok && o.Offset > start.Offset {
			remaining[o.Partition] = o.Offset
		}
	})
	return remaining, nil
}

func (s Source[R, T]) unavailable(err error) error {
	return fmt.Errorf("kafka topic %s: %w: %w", s.topic, sentinel.ErrUnavailable, err)
}

func (s Source[R, T]) skip(err error) {
	if s.onSkip != nil {
		s.onSkip(err)
	}
}
