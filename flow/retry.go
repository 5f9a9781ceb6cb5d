//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of cupofmud.
//
// cupofmud is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cupofmud is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cupofmud. If not, see https://www.gnu.org/licenses/.

package flow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BackoffStrategy interface for advanced retry strategies
type BackoffStrategy interface {
	// Delay returns the wait after the given failed attempt (1-based).
	Delay(attempt int) time.Duration
}

// RetryConfig defines retry behavior for a flow run.
type RetryConfig struct {
	MaxAttempts int                  // Total attempts including the first
	Backoff     time.Duration        // Simple backoff duration
	Strategy    BackoffStrategy      // Advanced backoff strategy (optional)
	RetryIf     func(err error) bool // Limits which errors are retried (optional)
}

// DefaultRetryConfig allows three attempts two seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Strategy:    &FixedBackoff{FixedDelay: 2 * time.Second},
	}
}

// Backoff kinds accepted by NewBackoff.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
	BackoffLinear      = "linear"
	BackoffJittered    = "jittered"
	BackoffNone        = "none"
)

// NewBackoff builds the named strategy. delay is the base delay and maxDelay
// caps the growing strategies; a non-positive maxDelay leaves them uncapped.
func NewBackoff(kind string, delay, maxDelay time.Duration) (BackoffStrategy, error) {
	if maxDelay <= 0 {
		maxDelay = time.Duration(1<<63 - 1)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case BackoffFixed, "":
		return &FixedBackoff{FixedDelay: delay}, nil
	case BackoffExponential:
		return &ExponentialBackoff{BaseDelay: delay, MaxDelay: maxDelay}, nil
	case BackoffLinear:
		return &LinearBackoff{BaseDelay: delay, MaxDelay: maxDelay}, nil
	case BackoffJittered:
		return &JitteredBackoff{BaseDelay: delay, MaxDelay: maxDelay, Jitter: 0.5}, nil
	case BackoffNone:
		return &NoBackoff{}, nil
	default:
		return nil, fmt.Errorf("unknown backoff %q: want %s, %s, %s, %s or %s",
			kind, BackoffFixed, BackoffExponential, BackoffLinear, BackoffJittered, BackoffNone)
	}
}

// GetDelay returns the delay for a given attempt
func (rc RetryConfig) GetDelay(attempt int) time.Duration {
	if rc.Strategy != nil {
		return rc.Strategy.Delay(attempt)
	}
	return rc.Backoff
}

// ShouldRetry reports whether err may be retried. Context errors never are.
func (rc RetryConfig) ShouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if rc.RetryIf == nil {
		return true
	}
	return rc.RetryIf(err)
}

// ExponentialBackoff implements BackoffStrategy
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (eb *ExponentialBackoff) Delay(attempt int) time.Duration {
	shift := uint(attempt - 1)
	if attempt < 1 {
		shift = 0
	}
	if shift > 62 || eb.BaseDelay > eb.MaxDelay>>shift {
		return eb.MaxDelay
	}
	return eb.BaseDelay << shift
}

// LinearBackoff implements linear backoff strategy
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (lb *LinearBackoff) Delay(attempt int) time.Duration {
	delay := lb.BaseDelay * time.Duration(attempt)
	if delay > lb.MaxDelay {
		delay = lb.MaxDelay
	}
	return delay
}

// FixedBackoff implements fixed delay backoff strategy
type FixedBackoff struct {
	FixedDelay time.Duration
}

func (fb *FixedBackoff) Delay(attempt int) time.Duration {
	return fb.FixedDelay
}

// JitteredBackoff adds randomness to exponential backoff
type JitteredBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64 // 0.0 to 1.0
}

func (jb *JitteredBackoff) Delay(attempt int) time.Duration {
	delay := (&ExponentialBackoff{BaseDelay: jb.BaseDelay, MaxDelay: jb.MaxDelay}).Delay(attempt)
	if jb.Jitter > 0 {
		jitterAmount := float64(delay) * jb.Jitter * (rand.Float64() - 0.5)
		delay += time.Duration(jitterAmount)
	}
	return delay
}

// NoBackoff implements no delay strategy
type NoBackoff struct{}

func (nb *NoBackoff) Delay(attempt int) time.Duration {
	return 0
}
