package client

import "gatechat/internal/models"

// mergeMessages returns history followed by any pushed messages it lacks.
// History wins for ids present in both.
func mergeMessages(history, pushed []models.Message) []models.Message {
	out := append([]models.Message(nil), history...)
	seen := make(map[int]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}
	for _, m := range pushed {
		if _, ok := seen[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func upsertMessage(list []models.Message, msg models.Message) []models.Message {
	for i := range list {
		if list[i].ID == msg.ID {
			list[i] = msg
			return list
		}
	}
	return append(list, msg)
}

func mergeGroupMessages(history, pushed []models.GroupMessage) []models.GroupMessage {
	out := append([]models.GroupMessage(nil), history...)
	for _, m := range pushed {
		out = upsertGroupMessage(out, m)
	}
	return out
}

func upsertGroupMessage(list []models.GroupMessage, msg models.GroupMessage) []models.GroupMessage {
	for i := range list {
		if list[i].ID == msg.ID {
			return list
		}
	}
	return append(list, msg)
}

func upsertGroup(list []models.Group, group models.Group) []models.Group {
	for i := range list {
		if list[i].ID == group.ID {
			list[i] = group
			return list
		}
	}
	return append(list, group)
}
