package main

import "time"

const (
	txQueueSize      = 1024 // capacity of async TX ring
	slcanReadBufSize = 4096 // per read() buffer for the slcan backend
	// slcanReclaimThreshold is the capacity above which the slcan RX
	// accumulation buffer is reallocated once drained, so bursts of line
	// noise do not pin large backing arrays.
	slcanReclaimThreshold = 16 * 1024
	neoviTxBatchMax       = 64 // frames handed to one native transmit call
	rxBackoffMin          = 20 * time.Millisecond
	rxBackoffMax          = 500 * time.Millisecond
)
