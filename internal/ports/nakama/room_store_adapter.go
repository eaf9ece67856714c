package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wisitphol/gametest-3/internal/ports"
)

// NakamaRoomStore implements ports.RoomStorePort on the Nakama storage
// engine. Records are system-owned, publicly readable and keyed by room code.
type NakamaRoomStore struct {
	nk runtime.NakamaModule
}

// NewNakamaRoomStore creates the storage adapter.
func NewNakamaRoomStore(nk runtime.NakamaModule) *NakamaRoomStore {
	return &NakamaRoomStore{nk: nk}
}

func (s *NakamaRoomStore) SaveRoom(ctx context.Context, record ports.RoomRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal room record: %w", err)
	}

	writes := []*runtime.StorageWrite{{
		Collection:      StorageCollectionRooms,
		Key:             record.RoomCode,
		Value:           string(value),
		PermissionRead:  2,
		PermissionWrite: 0,
	}}
	if _, err := s.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to write room record: %w", err)
	}
	return nil
}

func (s *NakamaRoomStore) UpdatePlayer(ctx context.Context, roomCode, playerKey string, record ports.PlayerRecord) error {
	room, ok, err := s.GetRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("room %s not found in storage", roomCode)
	}

	if room.Players == nil {
		room.Players = make(map[string]ports.PlayerRecord)
	}
	room.Players[playerKey] = record

	return s.SaveRoom(ctx, room)
}

func (s *NakamaRoomStore) GetRoom(ctx context.Context, roomCode string) (ports.RoomRecord, bool, error) {
	reads := []*runtime.StorageRead{{
		Collection: StorageCollectionRooms,
		Key:        roomCode,
	}}
	objects, err := s.nk.StorageRead(ctx, reads)
	if err != nil {
		return ports.RoomRecord{}, false, fmt.Errorf("failed to read room record: %w", err)
	}
	if len(objects) == 0 {
		return ports.RoomRecord{}, false, nil
	}

	var record ports.RoomRecord
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &record); err != nil {
		return ports.RoomRecord{}, false, fmt.Errorf("failed to unmarshal room record: %w", err)
	}
	return record, true, nil
}

func (s *NakamaRoomStore) RemoveRoom(ctx context.Context, roomCode string) error {
	deletes := []*runtime.StorageDelete{{
		Collection: StorageCollectionRooms,
		Key:        roomCode,
	}}
	if err := s.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("failed to delete room record: %w", err)
	}
	return nil
}
