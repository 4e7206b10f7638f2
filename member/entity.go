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

// Package member holds the member, team and item domain and its repositories.
package member

import (
	"context"
	"fmt"
	"time"
)

// Collection names.
const (
	CollectionMembers = "members"
	CollectionTeams   = "teams"
	CollectionItems   = "items"
)

// Member belongs to at most one team.
type Member struct {
	ID             string
	Username       string
	Age            int
	Team           TeamRef
	CreatedAt      *time.Time
	LastModifiedAt *time.Time
}

// NewMember creates an unsaved member, optionally placed in team.
func NewMember(username string, age int, team ...*Team) *Member {
	m := &Member{Username: username, Age: age}
	if len(team) > 0 && team[0] != nil {
		m.ChangeTeam(team[0])
	}
	return m
}

// ChangeTeam moves the member to team. The team must have been saved.
func (m *Member) ChangeTeam(team *Team) {
	m.Team = TeamRef{ID: team.ID}
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%s, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

// Team groups members.
type Team struct {
	ID             string
	Name           string
	CreatedAt      *time.Time
	LastModifiedAt *time.Time
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%s, name=%s)", t.ID, t.Name)
}

// TeamFinder loads teams by identity.
type TeamFinder interface {
	FindByID(ctx context.Context, id string) (*Team, error)
}

// TeamRef references a team by identity. The zero value means no team.
type TeamRef struct {
	ID string
}

func (r TeamRef) IsZero() bool { return r.ID == "" }

// Resolve loads the referenced team. A zero reference resolves to nil.
func (r TeamRef) Resolve(ctx context.Context, teams TeamFinder) (*Team, error) {
	if r.IsZero() {
		return nil, nil
	}
	if teams == nil {
		return nil, ErrNoTeamRepository
	}
	return teams.FindByID(ctx, r.ID)
}

// Item carries a caller assigned identity.
type Item struct {
	ID        string
	CreatedAt *time.Time
}

func NewItem(id string) *Item {
	return &Item{ID: id}
}

// IsNew reports whether the item has never been saved.
func (i *Item) IsNew() bool {
	return i.CreatedAt == nil
}

// MemberDto is a detached view of a member and its team name.
type MemberDto struct {
	ID       string
	Username string
	TeamName string
}

func (d *MemberDto) String() string {
	return fmt.Sprintf("MemberDto(id=%s, username=%s, teamName=%s)", d.ID, d.Username, d.TeamName)
}

// MemberWithTeam pairs a member with its resolved team, nil when it has none.
type MemberWithTeam struct {
	Member *Member
	Team   *Team
}
