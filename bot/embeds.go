package bot

import (
	"fmt"
	"guildsync/entity"
	"guildsync/tracker"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorBlue   = 0x3498db
	colorGold   = 0xf1c40f
	colorPurple = 0x9b59b6
)

// maxListLines caps list embeds well under Discord's description limit.
const maxListLines = 40

var greetings = []string{
	"Welcome aboard, %s!",
	"Glad you made it, %s!",
	"A wild %s appeared!",
	"Everyone say hi to %s!",
	"%s just landed!",
}

func welcomeEmbed(user *discordgo.User, att entity.Attribution, memberCount int) *discordgo.MessageEmbed {
	title := fmt.Sprintf(greetings[rand.Intn(len(greetings))], displayName(user))
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("%s joined the server.", user.Mention()),
		Color:       colorGreen,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Invited by", Value: attributionLine(att), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if memberCount > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Member #%d", memberCount)}
	}
	return embed
}

func attributionLine(att entity.Attribution) string {
	switch {
	case att.Attributed() && att.Anonymous():
		return fmt.Sprintf("invite `%s` (inviter hidden)", att.Code)
	case att.Attributed():
		return fmt.Sprintf("<@%s> with invite `%s` (%d uses)", att.InviterID, att.Code, att.Uses)
	default:
		return "could not be determined"
	}
}

// joinLogLine is the compact journal form of a join for the log channel.
func joinLogLine(user *discordgo.User, att entity.Attribution) string {
	switch {
	case att.Attributed() && att.Anonymous():
		return fmt.Sprintf("%s (%s) joined via invite `%s`, inviter hidden.", user.Mention(), user.Username, att.Code)
	case att.Attributed():
		return fmt.Sprintf("%s (%s) joined via invite `%s` by <@%s>, now at %d uses.",
			user.Mention(), user.Username, att.Code, att.InviterID, att.Uses)
	default:
		return fmt.Sprintf("%s (%s) joined. Invite source unknown.", user.Mention(), user.Username)
	}
}

func leaveEmbed(user *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Member left",
		Description: fmt.Sprintf("%s (%s) left the server.", displayName(user), user.Username),
		Color:       colorRed,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func birthdayEmbed(birthday entity.Birthday, message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Happy Birthday!",
		Description: message,
		Color:       colorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: birthday.MonthDay},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func dailyEventEmbed(event entity.Holiday) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Today is " + event.Name,
		Description: event.Description,
		URL:         event.URL,
		Color:       colorPurple,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if event.Source != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "via " + event.Source}
	}
	return embed
}

func birthdayListEmbed(birthdays []entity.Birthday) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, birthday := range birthdays {
		if i == maxListLines {
			sb.WriteString(fmt.Sprintf("and %d more", len(birthdays)-maxListLines))
			break
		}
		sb.WriteString(fmt.Sprintf("`%s` %s\n", birthday.MonthDay, birthday.UserName))
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Birthdays (%d)", len(birthdays)),
		Description: sb.String(),
		Color:       colorBlue,
	}
}

func invitesEmbed(snapshot entity.Snapshot) *discordgo.MessageEmbed {
	invites := make([]entity.Invite, 0, len(snapshot))
	for _, inv := range snapshot {
		invites = append(invites, inv)
	}
	sort.Slice(invites, func(i, j int) bool {
		if invites[i].Uses != invites[j].Uses {
			return invites[i].Uses > invites[j].Uses
		}
		return invites[i].Code < invites[j].Code
	})

	var sb strings.Builder
	for i, inv := range invites {
		if i == maxListLines {
			sb.WriteString(fmt.Sprintf("and %d more", len(invites)-maxListLines))
			break
		}
		inviter := inv.InviterName
		if inviter == "" {
			inviter = "unknown"
		}
		if inv.MaxUses > 0 {
			sb.WriteString(fmt.Sprintf("`%s` %d/%d uses, by %s\n", inv.Code, inv.Uses, inv.MaxUses, inviter))
		} else {
			sb.WriteString(fmt.Sprintf("`%s` %d uses, by %s\n", inv.Code, inv.Uses, inviter))
		}
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Active invites (%d)", len(invites)),
		Description: sb.String(),
		Color:       colorBlue,
	}
}

func inviteStatsEmbed(stats []tracker.InviterStats) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, stat := range stats {
		if i == maxListLines {
			sb.WriteString(fmt.Sprintf("and %d more", len(stats)-maxListLines))
			break
		}
		who := "hidden inviters"
		if stat.InviterID != "" {
			who = fmt.Sprintf("<@%s>", stat.InviterID)
		}
		sb.WriteString(fmt.Sprintf("%s: %d joins across %d invites\n", who, stat.TotalUses, stat.Invites))
	}
	return &discordgo.MessageEmbed{
		Title:       "Invite leaderboard",
		Description: sb.String(),
		Color:       colorBlue,
	}
}

func configEmbed(conf *entity.GuildConfig) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Guild settings",
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Welcome channel", Value: channelValue(conf.WelcomeChannelID), Inline: true},
			{Name: "Log channel", Value: channelValue(conf.LogChannelID), Inline: true},
			{Name: "Announcement channel", Value: channelValue(conf.AnnounceChannelID), Inline: true},
			{Name: "Default role", Value: roleValue(conf.DefaultRoleID), Inline: true},
			{Name: "Birthday template", Value: templateValue(conf.BirthdayMessage)},
		},
	}
}

func helpEmbed(prefix string, admin bool) *discordgo.MessageEmbed {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("`%sbirthday MM-DD [message]` - save your birthday\n", prefix))
	sb.WriteString(fmt.Sprintf("`%sdeletebirthday` - remove your birthday\n", prefix))
	sb.WriteString(fmt.Sprintf("`%sbirthdays` - list saved birthdays\n", prefix))
	sb.WriteString(fmt.Sprintf("`%sinvites` - show active invites\n", prefix))
	sb.WriteString(fmt.Sprintf("`%sresetchat` - start the AI conversation fresh\n", prefix))
	sb.WriteString(fmt.Sprintf("`%shelp` - show this help\n", prefix))
	sb.WriteString("\nMention me in a message to chat.")

	embed := &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: sb.String(),
		Color:       colorBlue,
	}
	if admin {
		var ab strings.Builder
		ab.WriteString(fmt.Sprintf("`%sconfig` - view settings\n", prefix))
		ab.WriteString(fmt.Sprintf("`%sconfig <welcome|log|announcement> <#channel>` - bind a channel\n", prefix))
		ab.WriteString(fmt.Sprintf("`%sconfig birthdaymessage <template>` - set the birthday template\n", prefix))
		ab.WriteString(fmt.Sprintf("`%sdefaultrole <@role|off>` - role for new members\n", prefix))
		ab.WriteString(fmt.Sprintf("`%sinvitestats` - joins per inviter\n", prefix))
		ab.WriteString(fmt.Sprintf("`%stestwelcome`, `%stestbirthday`, `%stestevent` - preview messages\n", prefix, prefix, prefix))
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Admin", Value: ab.String()})
	}
	return embed
}

func channelValue(id string) string {
	if id == "" {
		return "not set"
	}
	return "<#" + id + ">"
}

func roleValue(id string) string {
	if id == "" {
		return "not set"
	}
	return "<@&" + id + ">"
}

func templateValue(template string) string {
	if template == "" {
		return "built-in default"
	}
	return template
}
