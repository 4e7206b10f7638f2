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
	"errors"
	"fmt"

	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/repository"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/types"
)

// MemberRepository stores members and resolves their teams through teams.
type MemberRepository struct {
	repository.Repository[Member]
	MemberRepositoryCustom
	teams *TeamRepository
}

// ErrNoTeamRepository is returned by queries that resolve teams when the
// repository was built without one.
var ErrNoTeamRepository = errors.New("member repository has no team repository")

// NewMemberRepository builds the repository over st. teams resolves team
// references; when nil, FindMemberDto and FindAllWithTeams fail with
// ErrNoTeamRepository.
func NewMemberRepository(st store.Store, teams *TeamRepository, opts ...repository.Option) *MemberRepository {
	return &MemberRepository{
		Repository:             repository.NewRepository[Member](st, memberCodec{}, opts...),
		MemberRepositoryCustom: &memberRepositoryCustomImpl{store: st},
		teams:                  teams,
	}
}

func byUsername(username string) query.Condition {
	return query.Where(FieldUsername, query.Equals, username)
}

// FindByUsernameAndAgeGreaterThan matches the username exactly and ages
// strictly above age.
func (r *MemberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*Member, error) {
	return r.FindWhere(ctx, query.New().Where(query.And(
		byUsername(username),
		query.Where(FieldAge, query.GreaterThan, age),
	)))
}

// FindUser matches username and age exactly.
func (r *MemberRepository) FindUser(ctx context.Context, username string, age int) ([]*Member, error) {
	return r.FindWhere(ctx, query.New().Where(query.And(
		byUsername(username),
		query.Where(FieldAge, query.Equals, age),
	)))
}

// FindUsernameList returns every username in insertion order.
func (r *MemberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	rows, err := r.Project(ctx, query.New(), FieldUsername)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row[FieldUsername].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// FindMemberDto lists members that belong to a team together with the team
// name. Members without a team are left out.
func (r *MemberRepository) FindMemberDto(ctx context.Context) ([]*MemberDto, error) {
	if r.teams == nil {
		return nil, ErrNoTeamRepository
	}
	rows, err := r.Project(ctx, query.New().Where(query.Not(query.Where(FieldTeamID, query.Equals, nil))), FieldUsername, FieldTeamID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*MemberDto, 0, len(rows))
	for _, row := range rows {
		teamID, _ := row[FieldTeamID].(string)
		team, err := r.teams.FindByID(ctx, teamID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		id, _ := row[record.KeyID].(string)
		username, _ := row[FieldUsername].(string)
		dtos = append(dtos, &MemberDto{ID: id, Username: username, TeamName: team.Name})
	}
	return dtos, nil
}

// FindByNames returns members whose username is in names. Unknown names
// are ignored.
func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*Member, error) {
	return r.FindWhere(ctx, query.New().Where(query.Where(FieldUsername, query.In, names)))
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) ([]*Member, error) {
	return r.FindWhere(ctx, query.New().Where(byUsername(username)))
}

// FindByTeam returns the members of a team.
func (r *MemberRepository) FindByTeam(ctx context.Context, team *Team) ([]*Member, error) {
	return r.FindWhere(ctx, query.New().Where(query.Where(FieldTeamID, query.Equals, team.ID)))
}

// FindByAge returns one page of members of the given age.
func (r *MemberRepository) FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[Member], error) {
	return r.Page(ctx, query.New().
		Where(query.Where(FieldAge, query.Equals, age)).
		Paged(page))
}

// FindMemberDtoByAge is FindByAge mapped to MemberDto without team names.
func (r *MemberRepository) FindMemberDtoByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[MemberDto], error) {
	members, err := r.FindByAge(ctx, age, page)
	if err != nil {
		return nil, err
	}
	return types.MapPage(members, func(m *Member) *MemberDto {
		return &MemberDto{ID: m.ID, Username: m.Username}
	}), nil
}

// BulkAgePlus adds one to the age of every member aged age or older and
// returns how many members changed.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int, error) {
	return r.BulkUpdate(ctx, query.Where(FieldAge, query.GreaterThanOrEqual, age), store.Increment(FieldAge, 1))
}

// FindReadOnlyByUsername returns a member detached from the identity cache.
func (r *MemberRepository) FindReadOnlyByUsername(ctx context.Context, username string) (*Member, error) {
	return r.FindOne(ctx, query.New().Where(byUsername(username)).ReadOnly())
}

// FindLockByUsername locks the members named username until the returned
// lock is released. Saves through the lock are seen by the next locker.
func (r *MemberRepository) FindLockByUsername(ctx context.Context, username string) (*repository.Locked[Member], error) {
	return r.FindLocked(ctx, query.New().Where(byUsername(username)).ForUpdate())
}

// FindAllWithTeams loads every member and resolves its team, loading each
// team once.
func (r *MemberRepository) FindAllWithTeams(ctx context.Context) ([]*MemberWithTeam, error) {
	if r.teams == nil {
		return nil, ErrNoTeamRepository
	}
	members, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	teams := make(map[string]*Team)
	result := make([]*MemberWithTeam, len(members))
	for i, m := range members {
		result[i] = &MemberWithTeam{Member: m}
		if m.Team.IsZero() {
			continue
		}
		team, ok := teams[m.Team.ID]
		if !ok {
			if team, err = m.Team.Resolve(ctx, r.teams); err != nil {
				return nil, fmt.Errorf("resolve team of %s: %w", m.ID, err)
			}
			teams[m.Team.ID] = team
		}
		result[i].Team = team
	}
	return result, nil
}
