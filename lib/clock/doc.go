// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that timestamp records or wait on deadlines take a Clock
// instead of calling time.Now or time.After directly. Real() is the
// standard library behavior; Fake() only moves when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go waitForDrain(c)
//	c.WaitForTimers(1)          // the goroutine registered its After
//	c.Advance(10 * time.Second) // and now it fires
package clock
