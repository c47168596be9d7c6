/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package poller

import (
	"sync"

	"github.com/carverauto/rigwatch/pkg/models"
)

const defaultSubscriberBuffer = 16

// Subscribe registers a live subscriber. Events are delivered without
// blocking the engine: a subscriber whose buffer is full misses the event.
// The returned cancel func unregisters and closes the channel; the channel is
// also closed when the engine stops.
func (p *Poller) Subscribe(buffer int) (<-chan models.StreamEvent, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	ch := make(chan models.StreamEvent, buffer)

	p.subMu.Lock()
	defer p.subMu.Unlock()

	if p.closed {
		close(ch)
		return ch, func() {}
	}

	p.subs[ch] = struct{}{}

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()

			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}

func (p *Poller) broadcast(ev models.StreamEvent) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for ch := range p.subs {
		select {
		case ch <- ev:
		default:
			p.logger.Debug().Str("event", string(ev.Type)).Msg("Subscriber buffer full, event dropped")
		}
	}
}

func (p *Poller) closeSubscribers() {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for ch := range p.subs {
		close(ch)
		delete(p.subs, ch)
	}

	p.closed = true
}
