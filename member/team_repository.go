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

	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/repository"
	"github.com/tomoncle/datarepo/store"
)

// TeamRepository stores teams.
type TeamRepository struct {
	repository.Repository[Team]
}

func NewTeamRepository(st store.Store, opts ...repository.Option) *TeamRepository {
	return &TeamRepository{Repository: repository.NewRepository[Team](st, teamCodec{}, opts...)}
}

// FindByName returns the team with the given name.
func (r *TeamRepository) FindByName(ctx context.Context, name string) (*Team, error) {
	return r.FindOne(ctx, query.New().Where(query.Where(FieldName, query.Equals, name)))
}

// ItemRepository stores items under caller assigned identities.
type ItemRepository struct {
	repository.Repository[Item]
}

func NewItemRepository(st store.Store, opts ...repository.Option) *ItemRepository {
	return &ItemRepository{Repository: repository.NewRepository[Item](st, itemCodec{}, opts...)}
}
