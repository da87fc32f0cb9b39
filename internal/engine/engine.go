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
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/ios-xr/xrd-ha-app/internal/action"
	"github.com/ios-xr/xrd-ha-app/internal/cloud"
	"github.com/ios-xr/xrd-ha-app/internal/metrics"
	"github.com/ios-xr/xrd-ha-app/internal/telemetry"
	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
)

// minPoolSize is the worker pool floor. The pool is otherwise sized from
// the configured group count; it must stay bounded so a misbehaving peer
// cannot exhaust the process.
const minPoolSize = 8

// Engine owns the session table and turns VRRP observations into cloud
// actions. Rising edges dispatch go-active tasks onto a fixed worker pool;
// a periodic reconciliation sweep re-asserts the cloud side for every
// group currently believed active.
type Engine struct {
	actions  *action.Table
	sessions *SessionTable
	cloud    cloud.Client
	pool     *workerpool.WorkerPool
	interval time.Duration
	metrics  *metrics.Metrics
}

// New creates an engine over the action table. interval is the reconcile
// period.
func New(actions *action.Table, cloudClient cloud.Client, interval time.Duration, m *metrics.Metrics) *Engine {
	poolSize := actions.Len()
	if poolSize < minPoolSize {
		poolSize = minPoolSize
	}
	return &Engine{
		actions:  actions,
		sessions: NewSessionTable(actions.Keys()),
		cloud:    cloudClient,
		pool:     workerpool.New(poolSize),
		interval: interval,
		metrics:  m,
	}
}

// Sessions exposes the session table for inspection.
func (e *Engine) Sessions() *SessionTable {
	return e.sessions
}

// Observe records one VRRP observation. Only a strict Inactive-to-Active
// flip dispatches work; every other transition just updates the table.
// The caller is never blocked on the cloud.
func (e *Engine) Observe(key vrrp.GroupKey, role vrrp.Role) {
	act, ok := e.actions.Get(key)
	if !ok {
		slog.Debug("Ignoring observation for unconfigured group",
			"component", "engine", "group", key, "role", role)
		return
	}

	prior, _ := e.sessions.Set(key, role)
	slog.Info("VRRP state observed",
		"component", "engine", "group", key, "role", role, "prior", prior)
	e.metrics.ObservationsTotal.WithLabelValues(string(role)).Inc()

	if role == vrrp.RoleActive && prior == vrrp.RoleInactive {
		e.dispatchGoActive(key, act)
	}
}

// OnConnect implements telemetry.Handler.
func (e *Engine) OnConnect(peer string) {
	slog.Info("Telemetry peer connected", "component", "engine", "peer", peer)
}

// OnDisconnect implements telemetry.Handler. With the peer gone the local
// view of which side is active is stale, so every group is reset to
// Inactive; the peer re-sends current state on reconnect and the engine
// re-arms on the next rising edge.
func (e *Engine) OnDisconnect(peer string, reason telemetry.DisconnectReason) {
	slog.Warn("Telemetry peer disconnected, resetting all groups to inactive",
		"component", "engine", "peer", peer, "reason", reason)
	e.sessions.Reset()
}

// Shutdown drains the worker pool, waiting for in-flight go-active tasks.
func (e *Engine) Shutdown() {
	e.pool.StopWait()
}

func (e *Engine) dispatchGoActive(key vrrp.GroupKey, act action.Action) {
	slog.Info("Dispatching go-active", "component", "engine", "group", key, "action", act)
	e.metrics.GoActiveDispatchesTotal.Inc()
	e.pool.Submit(func() {
		defer exitOnPanic("go-active worker")
		if err := e.execute(context.Background(), act, false); err != nil {
			// Not re-enqueued and the session entry stays untouched; the
			// next reconcile sweep picks up the discrepancy if the group
			// is still active.
			slog.Error("Go-active action failed",
				"component", "engine", "group", key, "action", act, "error", err)
			e.metrics.ActionFailuresTotal.WithLabelValues("go-active").Inc()
			return
		}
		slog.Info("Successful go-active", "component", "engine", "group", key, "action", act)
	})
}

// execute runs act against the cloud. precheck is true only on the
// reconcile path.
func (e *Engine) execute(ctx context.Context, act action.Action, precheck bool) error {
	switch a := act.(type) {
	case action.ActivateVIP:
		return e.cloud.AssignVIP(ctx, a.DeviceIndex, a.VIP, precheck)
	case action.UpdateRouteTable:
		return e.cloud.ReplaceRoute(ctx, a.RouteTableID, a.Destination, a.TargetNetworkInterface, precheck)
	default:
		return fmt.Errorf("unhandled action type %T", act)
	}
}

// exitOnPanic converts a programming error on an engine thread into a
// logged process exit so the supervisor restarts with a clean slate.
func exitOnPanic(scope string) {
	if r := recover(); r != nil {
		slog.Error("Unhandled panic",
			"component", "engine", "scope", scope, "panic", r, "stack", string(debug.Stack()))
		os.Exit(1)
	}
}
