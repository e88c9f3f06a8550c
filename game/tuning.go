package game

import "time"

const (
	InitialSnakeLength = 3
	MinSnakeLength     = 2
	SpawnMargin        = 5
	SpawnLookahead     = 3

	FoodScore = 10

	WeaponSpawnMin = 5 * time.Second
	WeaponSpawnMax = 15 * time.Second

	BombRange       = 25
	BombDamage      = 4
	ExplosionTicks  = 5
	GhostDuration   = 5 * time.Second
	CountdownLength = 5 * time.Second
)
