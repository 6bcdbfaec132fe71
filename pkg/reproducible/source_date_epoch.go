// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package reproducible is the timestamp source for generated file headers.
package reproducible

import (
	"os"
	"strconv"
	"sync"
	"time"
)

var epoch struct {
	once sync.Once
	time time.Time
	ok   bool
}

// Now returns the current local time, unless the SOURCE_DATE_EPOCH
// environment variable is set, in which case it returns the time that the
// variable names, so that builds which need reproducible output can get
// it.  The variable is read once per process.
func Now() time.Time {
	epoch.once.Do(func() {
		if secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64); err == nil {
			epoch.time = time.Unix(secs, 0)
			epoch.ok = true
		}
	})
	if epoch.ok {
		return epoch.time
	}
	return time.Now()
}
