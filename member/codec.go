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
	"errors"
	"fmt"

	"github.com/tomoncle/datarepo/record"
)

// Field names.
const (
	FieldUsername = "username"
	FieldAge      = "age"
	FieldTeamID   = "team_id"
	FieldName     = "name"
)

var errMissingField = errors.New("missing field")

type memberCodec struct{}

func (memberCodec) Encode(m *Member) (*record.Record, error) {
	var team interface{}
	if !m.Team.IsZero() {
		team = m.Team.ID
	}
	return record.New(m.ID, record.Fields{
		FieldUsername: m.Username,
		FieldAge:      m.Age,
		FieldTeamID:   team,
	}), nil
}

func (memberCodec) Decode(r *record.Record) (*Member, error) {
	username, ok := r.GetString(FieldUsername)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, FieldUsername)
	}
	age, ok := r.GetInt(FieldAge)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, FieldAge)
	}
	team, _ := r.GetString(FieldTeamID)
	return &Member{
		ID:             r.ID,
		Username:       username,
		Age:            int(age),
		Team:           TeamRef{ID: team},
		CreatedAt:      r.CreatedAt,
		LastModifiedAt: r.LastModifiedAt,
	}, nil
}

type teamCodec struct{}

func (teamCodec) Encode(t *Team) (*record.Record, error) {
	return record.New(t.ID, record.Fields{FieldName: t.Name}), nil
}

func (teamCodec) Decode(r *record.Record) (*Team, error) {
	name, ok := r.GetString(FieldName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, FieldName)
	}
	return &Team{ID: r.ID, Name: name, CreatedAt: r.CreatedAt, LastModifiedAt: r.LastModifiedAt}, nil
}

type itemCodec struct{}

func (itemCodec) Encode(i *Item) (*record.Record, error) {
	if i.ID == "" {
		return nil, errors.New("item needs an identity")
	}
	return record.New(i.ID, nil), nil
}

func (itemCodec) Decode(r *record.Record) (*Item, error) {
	return &Item{ID: r.ID, CreatedAt: r.CreatedAt}, nil
}
