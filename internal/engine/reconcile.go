// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
)

// RunReconcileLoop periodically re-asserts the cloud side for every group
// currently believed active. It runs on the caller's goroutine until ctx
// is cancelled, deliberately apart from the worker pool so that a slow
// sweep can never starve edge-triggered go-active dispatch.
func (e *Engine) RunReconcileLoop(ctx context.Context) {
	defer exitOnPanic("reconcile loop")

	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		e.reconcileOnce(ctx)
		timer.Reset(e.interval)
	}
}

// reconcileOnce sweeps the session table in configuration order. Every
// adapter call here carries precheck=true: a group whose cloud state
// already matches intent is left untouched.
func (e *Engine) reconcileOnce(ctx context.Context) {
	start := time.Now()
	for _, key := range e.sessions.Keys() {
		role, ok := e.sessions.Get(key)
		if !ok || role != vrrp.RoleActive {
			continue
		}
		act, ok := e.actions.Get(key)
		if !ok {
			continue
		}
		if err := e.execute(ctx, act, true); err != nil {
			slog.Error("Reconciliation failed for group",
				"component", "engine", "group", key, "action", act, "error", err)
			e.metrics.ActionFailuresTotal.WithLabelValues("reconcile").Inc()
			continue
		}
		slog.Debug("Reconciled group", "component", "engine", "group", key)
	}
	e.metrics.ReconcileSweepsTotal.Inc()
	e.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
}
