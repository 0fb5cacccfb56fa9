package procs

import (
	"context"
	"fmt"

	"github.com/tcspc-go/tcspc/bucket"
	"github.com/tcspc-go/tcspc/event"
)

// Cluster wire shape: each cluster is written as a length word L followed
// by L BinIndex values. L == 0 encodes an empty cluster in a single word,
// so no dedicated skip marker is needed. UnbatchBinIncrementClusters
// mirrors this layout.
const clusterLengthWords = 1

// BatchBinIncrementClusters collects event.BinIncrementCluster values into
// encoded runs inside fixed-size buckets, flushing a bucket (as a batch)
// whenever the next cluster would not fit, or BatchSize clusters have been
// collected. It is an optimized analogue of Batch specialized for
// clusters of varying length, avoiding one allocation per cluster.
type BatchBinIncrementClusters struct {
	source     bucket.Source[event.BinIndex]
	bucketSize int
	batchSize  int // 0 means unlimited, limited only by bucket size
	downstream BatchSink[event.BinIndex]

	cur        bucket.Bucket[event.BinIndex]
	used       int
	clustersIn int
}

func NewBatchBinIncrementClusters(source bucket.Source[event.BinIndex], bucketSize, batchSize int, downstream BatchSink[event.BinIndex]) *BatchBinIncrementClusters {
	return &BatchBinIncrementClusters{source: source, bucketSize: bucketSize, batchSize: batchSize, downstream: downstream}
}

func (b *BatchBinIncrementClusters) emitCurrent(ctx context.Context) error {
	if b.clustersIn == 0 {
		return nil
	}
	full := b.cur
	full.Shrink(0, b.used)
	b.cur, b.used, b.clustersIn = bucket.Bucket[event.BinIndex]{}, 0, 0
	return b.downstream.HandleBucket(ctx, full)
}

func (b *BatchBinIncrementClusters) encode(bins []event.BinIndex) bool {
	need := clusterLengthWords + len(bins)
	if b.cur.Len()-b.used < need {
		return false
	}
	dst := b.cur.Data()[b.used:]
	dst[0] = event.BinIndex(len(bins))
	copy(dst[1:], bins)
	b.used += need
	return true
}

// HandleCluster encodes one cluster into the current bucket, rotating to a
// fresh bucket (or emitting early) as needed.
func (b *BatchBinIncrementClusters) HandleCluster(ctx context.Context, bins []event.BinIndex) error {
	if b.cur.Len() == 0 {
		bk, err := b.source.BucketOfSize(b.bucketSize)
		if err != nil {
			return err
		}
		b.cur = bk
	}
	if !b.encode(bins) {
		if err := b.emitCurrent(ctx); err != nil {
			return err
		}
		bk, err := b.source.BucketOfSize(b.bucketSize)
		if err != nil {
			return err
		}
		b.cur = bk
		if !b.encode(bins) {
			return fmt.Errorf("procs: bin increment cluster of %d bins does not fit in bucket of size %d", len(bins), b.bucketSize)
		}
	}
	b.clustersIn++
	if b.batchSize > 0 && b.clustersIn == b.batchSize {
		return b.emitCurrent(ctx)
	}
	return nil
}

func (b *BatchBinIncrementClusters) Flush(ctx context.Context) error {
	if err := b.emitCurrent(ctx); err != nil {
		return err
	}
	return b.downstream.Flush(ctx)
}

// ClusterSink receives individually decoded clusters.
type ClusterSink interface {
	HandleCluster(ctx context.Context, bins []event.BinIndex) error
	Flush(ctx context.Context) error
}

// UnbatchBinIncrementClusters decodes the runs produced by
// BatchBinIncrementClusters back into individual clusters, in order. Each
// decoded cluster refers into the received bucket's memory.
type UnbatchBinIncrementClusters struct {
	downstream ClusterSink
}

func NewUnbatchBinIncrementClusters(downstream ClusterSink) *UnbatchBinIncrementClusters {
	return &UnbatchBinIncrementClusters{downstream: downstream}
}

func (u *UnbatchBinIncrementClusters) HandleBucket(ctx context.Context, b bucket.Bucket[event.BinIndex]) error {
	data := b.Data()
	for len(data) > 0 {
		length := int(data[0])
		data = data[1:]
		if length > len(data) {
			return fmt.Errorf("procs: truncated bin increment cluster encoding: need %d bins, have %d", length, len(data))
		}
		if err := u.downstream.HandleCluster(ctx, data[:length]); err != nil {
			return err
		}
		data = data[length:]
	}
	b.Release()
	return nil
}

func (u *UnbatchBinIncrementClusters) Flush(ctx context.Context) error { return u.downstream.Flush(ctx) }
