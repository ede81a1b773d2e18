package notifications

import (
	"fmt"
	"strconv"
)

// Classify maps a hub event onto a notification kind, message and priority.
// ok is false for events that are not shown to the user.
func Classify(event string, data map[string]interface{}) (kind Kind, message string, priority bool, ok bool) {
	switch event {
	case "connected":
		if name := str(data, "username"); name != "" {
			return KindSuccess, "Welcome back, " + name + "!", false, true
		}
		return KindSuccess, str(data, "message"), false, true
	case "globalCarbonUpdate":
		return KindInfo, fmt.Sprintf("%s logged %s %s of %s", str(data, "username"), num(data, "amount"), str(data, "unit"), str(data, "category")), false, true
	case "globalWaterUpdate":
		return KindInfo, fmt.Sprintf("%s logged %sL water usage", str(data, "username"), num(data, "amount")), false, true
	case "newRecyclableItem":
		return KindSuccess, fmt.Sprintf("%s listed %q for recycling", str(data, "owner"), str(data, "title")), false, true
	case "newDonation":
		return KindSuccess, fmt.Sprintf("%s made a new donation: %q", str(data, "owner"), str(data, "title")), false, true
	case "urgentDonation":
		return KindWarning, fmt.Sprintf("Urgent donation needed: %q", str(data, "title")), true, true
	case "itemClaimed", "donationClaimed":
		return KindSuccess, fmt.Sprintf("%s claimed %q", str(data, "claimant"), str(data, "title")), false, true
	case "newAwarenessPost":
		return KindInfo, fmt.Sprintf("New awareness post: %q", str(data, "title")), false, true
	case "featuredPost":
		return KindWarning, fmt.Sprintf("Featured: %q", str(data, "title")), true, true
	case "leaderboardUpdate":
		return KindSuccess, fmt.Sprintf("%s earned %s eco points for %s", str(data, "username"), num(data, "points"), str(data, "reason")), false, true
	case "achievementUnlocked":
		return KindSuccess, fmt.Sprintf("%s unlocked %s %s", str(data, "username"), str(data, "icon"), str(data, "name")), true, true
	case "newComment":
		return KindInfo, fmt.Sprintf("%s commented on %q", str(data, "username"), str(data, "postTitle")), false, true
	case "adminAlert":
		return KindWarning, "Admin Alert: " + str(data, "message"), true, true
	case "securityAlert":
		return KindError, "Security Alert: " + str(data, "message"), true, true
	case "announcement":
		return KindInfo, str(data, "message"), false, true
	}
	return "", "", false, false
}

func str(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func num(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	}
	return "0"
}
