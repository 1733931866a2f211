package behavior

import (
	"fmt"

	"github.com/talgya/battlemind/internal/entity"
)

// CheckLowHealth succeeds when the health ratio is below threshold.
// A zero max health counts as full health.
func CheckLowHealth(threshold float64) Node {
	return &Condition{
		Label: fmt.Sprintf("CheckLowHealth(%.2f)", threshold),
		Check: func(e entity.Entity) bool {
			return HealthRatio(e) < threshold
		},
	}
}

// CheckMana succeeds when the entity has at least min mana.
func CheckMana(min float64) Node {
	return &Condition{
		Label: fmt.Sprintf("CheckMana(%.0f)", min),
		Check: func(e entity.Entity) bool { return e.Mana() >= min },
	}
}

// CheckEnemyNearby succeeds when a living enemy is within radius.
func CheckEnemyNearby(radius float64) Node {
	return &Condition{
		Label: fmt.Sprintf("CheckEnemyNearby(%.0f)", radius),
		Check: func(e entity.Entity) bool {
			return len(e.Nearby(radius, true)) > 0
		},
	}
}

// UseHealingItem consumes a healing consumable if one exists.
func UseHealingItem() Node {
	return &Action{
		Label: "UseHealingItem",
		Run: func(e entity.Entity) Status {
			if !e.HasConsumable("HEAL") {
				return Failure
			}
			if e.UseItem("HEAL") {
				return Success
			}
			return Failure
		},
	}
}

// UseSkillByTag uses the first ready, affordable skill carrying any of the
// given tags.
func UseSkillByTag(tags ...string) Node {
	return &Action{
		Label: fmt.Sprintf("UseSkillByTag(%v)", tags),
		Run: func(e entity.Entity) Status {
			for id, s := range e.Skills() {
				if !hasAnyTag(s.Tags, tags) {
					continue
				}
				if !e.SkillReady(id) || e.Mana() < s.ManaCost || e.Stamina() < s.StaminaCost {
					continue
				}
				if e.UseSkill(id) {
					return Success
				}
			}
			return Failure
		},
	}
}

// AttackNearestEnemy attacks the closest living enemy within radius.
func AttackNearestEnemy(radius float64) Node {
	return &Action{
		Label: "AttackNearestEnemy",
		Run: func(e entity.Entity) Status {
			target := NearestEnemy(e, radius)
			if target == nil {
				return Failure
			}
			e.Attack(target)
			return Success
		},
	}
}

// FleeFromEnemies moves directly away from the nearest enemy.
func FleeFromEnemies(radius float64) Node {
	return &Action{
		Label: "FleeFromEnemies",
		Run: func(e entity.Entity) Status {
			threat := NearestEnemy(e, radius)
			if threat == nil {
				return Failure
			}
			away := e.Position().Sub(threat.Position()).Normalized()
			e.MoveInDirection(away)
			return Success
		},
	}
}

// Idle always succeeds without acting, terminating a selector chain.
func Idle() Node {
	return &Action{
		Label: "Idle",
		Run:   func(entity.Entity) Status { return Success },
	}
}

// NearestEnemy returns the closest living enemy within radius, or nil.
func NearestEnemy(e entity.Entity, radius float64) entity.Entity {
	var nearest entity.Entity
	best := radius + 1
	for _, other := range e.Nearby(radius, true) {
		d := entity.Distance(e.Position(), other.Position())
		if d < best {
			best = d
			nearest = other
		}
	}
	return nearest
}

// HealthRatio returns health/max_health with the division-by-zero fallback
// of 1.0 (treated as unhurt).
func HealthRatio(e entity.Entity) float64 {
	max := e.MaxHealth()
	if max <= 0 {
		return 1.0
	}
	return e.Health() / max
}

func hasAnyTag(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
