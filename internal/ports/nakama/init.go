package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wisitphol/gametest-3/internal/config"
)

// roomConfigPath is resolved relative to the Nakama data directory.
const roomConfigPath = "data/room_config.json"

// InitModule wires RPCs and the match handler into the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadRoomConfig(roomConfigPath); err != nil {
		logger.Warn("InitModule: Could not load room config, using defaults: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameRGBZet, NewMatch); err != nil {
		return err
	}

	logger.Info("RGBZET Go module loaded.")
	return nil
}

// RegisterRPCs registers the room discovery RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcJoinRoom, rpcJoinRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRejoinToken, rpcRejoinToken)
}
