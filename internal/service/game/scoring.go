package game

// 结算一轮得分，在最后一张票落下时恰好调用一次。
// 规则：投中正确释义 +1；自己编写的释义每获得一张票 +2，
// 但投给自己的票既不加分也不扣分。
// 先按本轮的释义/投票快照算出增量并归档，再把增量累加到总分，
// 这样归档记录与累计总分始终一致。
func settleRound(room *Room) RoundResult {
	var correct *Definition

	for _, d := range room.Definitions {
		if d.IsCorrect {
			correct = d
			break
		}
	}

	scores := make(map[string]int, len(room.Players))

	for _, p := range room.Players {
		delta := 0

		if correct != nil && containsVoter(correct.VoterIDs, p.ID) {
			delta++
		}

		for _, d := range room.Definitions {
			if d.AuthorID != p.ID {
				continue
			}

			for _, voterID := range d.VoterIDs {
				if voterID != p.ID {
					delta += 2
				}
			}
		}

		scores[p.ID] = delta
	}

	result := RoundResult{
		Round:       room.CurrentRound,
		Word:        *room.CurrentWord,
		Definitions: snapshotDefinitions(room.Definitions),
		Scores:      scores,
	}

	for _, p := range room.Players {
		p.Score += scores[p.ID]
	}

	return result
}

// FinalScores 返回玩家 ID 到累计总分的映射
func (r *Room) FinalScores() map[string]int {
	scores := make(map[string]int, len(r.Players))

	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}

	return scores
}

func containsVoter(voterIDs []string, playerID string) bool {
	for _, id := range voterIDs {
		if id == playerID {
			return true
		}
	}

	return false
}

func snapshotDefinitions(src []*Definition) []Definition {
	defs := make([]Definition, 0, len(src))

	for _, d := range src {
		cd := *d
		cd.VoterIDs = append([]string{}, d.VoterIDs...)
		defs = append(defs, cd)
	}

	return defs
}
