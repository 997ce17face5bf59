/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package delayqueue implements a queue whose items only become available
// once their delay has elapsed.
// Items are kept in a min-heap ordered by expiry. A background worker, started
// with Run, moves expired items into a FIFO of released items and notifies
// change listeners. Consumers do not depend on the worker: Take waits on the
// earliest expiry itself, so items are delivered in expiry order even when
// the worker is not running.
package delayqueue
