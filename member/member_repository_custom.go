/*
 * Copyright 2025 tomoncle.
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

package member

import (
	"context"

	"github.com/tomoncle/datarepo/store"
)

// MemberRepositoryCustom holds hand written member queries.
type MemberRepositoryCustom interface {
	FindMemberCustom(ctx context.Context) ([]*Member, error)
}

// memberRepositoryCustomImpl reads the store directly. Its results are
// detached from the identity cache.
type memberRepositoryCustomImpl struct {
	store store.Store
}

func (r *memberRepositoryCustomImpl) FindMemberCustom(ctx context.Context) ([]*Member, error) {
	records, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, len(records))
	for _, rec := range records {
		m, err := memberCodec{}.Decode(rec)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
