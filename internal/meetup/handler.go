package meetup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	config "github.com/tigmir/wemeet-bot/configuration"
	"github.com/tigmir/wemeet-bot/internal/geo"
	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/models"
	"github.com/tigmir/wemeet-bot/internal/repository"
)

const (
	msgNeedUsername = "Users must have a username to use this bot. Please update your telegram" +
		" profile and retry. To get help use /help command. To start again when ready use /start."
	msgAskOrg          = "Hi! Please enter the name of your organization or group:"
	msgAddedToOrg      = "You were added to the organization %s"
	msgSetupFirst      = "Please use /start command to select your organization and search radius first."
	msgRequestLocation = "Please share your location with me, so I can find the other org members nearby"
	msgRadiusSelected  = "You selected %v km search radius"
	msgMembersNearby   = "The following members are near you %s"
	msgNoOneAround     = "Sorry, no one is around at this time. To get help use /help command. To start again use /start."
	msgHelp            = "Please use /start command to start or restart the bot.\n" +
		"We store the location information that you submitted for 24 hours maximum.\n" +
		"If you would like to add your organization to We Meet Bot as a private one and use " +
		"the bot for your needs, please contact @tigmir. Prices for private(closed) organizations" +
		" start at $5 per month per organization.\n" +
		"If you have any additional questions, please contact @tigmir."
)

type Application interface {
	UserStart(models.MeetupUserStartEvent)
	Help(models.MeetupUserHelpEvent)
	JoinOrg(models.MeetupJoinOrgEvent)
	RadiusSelected(models.MeetupRadiusSelectedEvent)
	LocationUpdate(models.MeetupLocationUpdateEvent)
	PurgeStaleMembers() (int64, error)
	SyncOrganizations() error
}

type Client struct {
	MemberRep      repository.MemberRepository
	OrgRep         repository.OrganizationRepository
	dispatcher     *mediator.Dispatcher
	authorizedOrgs []string
	radiusOptions  []int
}

func Provide(memberRep repository.MemberRepository, orgRep repository.OrganizationRepository, dispatcher *mediator.Dispatcher) Application {
	client := &Client{
		MemberRep:      memberRep,
		OrgRep:         orgRep,
		dispatcher:     dispatcher,
		authorizedOrgs: config.AuthorizedOrgs(),
		radiusOptions:  config.RadiusOptions(),
	}
	if err := dispatcher.Register(
		Listener{
			Client: client,
		},
		models.MeetupEvents...); err != nil {
		log.Info().Err(err).Send()
	}
	return client
}

// UserStart resumes the setup conversation wherever the member left off:
// known org means the radius selector, a roster entry without a member
// record means re-attach, anything else means the org prompt.
func (c *Client) UserStart(event models.MeetupUserStartEvent) {
	username := event.User.UserName
	if username == "" {
		c.sendMessage(event.ChatId, msgNeedUsername, false)
		return
	}
	member, err := c.MemberRep.GetByUsername(username)
	if err == nil && member.SelectedOrg != "" {
		c.sendRadiusSelector(event.ChatId, member.SelectedOrg)
		return
	}
	for _, code := range c.authorizedOrgs {
		org, err := c.OrgRep.GetByCode(code)
		if err != nil {
			continue
		}
		if org.HasMember(username) {
			c.updateMember(username, event.User, func(m *models.Member) {
				m.SelectedOrg = code
			})
			c.sendRadiusSelector(event.ChatId, code)
			return
		}
	}
	c.sendMessage(event.ChatId, msgAskOrg, false)
}

func (c *Client) Help(event models.MeetupUserHelpEvent) {
	c.sendMessage(event.ChatId, msgHelp, false)
}

// JoinOrg handles a plain text message as an organization name.
func (c *Client) JoinOrg(event models.MeetupJoinOrgEvent) {
	username := event.User.UserName
	if username == "" {
		c.sendMessage(event.ChatId, msgNeedUsername, false)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(event.Text))
	if !c.authorized(code) {
		c.sendMessage(event.ChatId, msgAskOrg, false)
		return
	}
	org, err := c.OrgRep.GetByCode(code)
	if err != nil {
		org = models.Organization{Code: code}
	}
	if !org.HasMember(username) {
		org.Members = append(org.Members, username)
		if _, err := c.OrgRep.Upsert(code, org.Members); err != nil {
			log.Error().Err(err).Str("org", code).Msg("organization roster update failed")
			return
		}
	}
	c.updateMember(username, event.User, func(m *models.Member) {
		m.SelectedOrg = code
	})
	c.logMeetup(fmt.Sprintf("user %s joined org %s", username, code))
	c.sendMessage(event.ChatId, fmt.Sprintf(msgAddedToOrg, code), false)
	c.sendRadiusSelector(event.ChatId, code)
}

// RadiusSelected handles the inline keyboard callback. The payload must be
// the radius in kilometers as digits, anything else is ignored.
func (c *Client) RadiusSelected(event models.MeetupRadiusSelectedEvent) {
	if !isDigits(event.Data) {
		log.Warn().
			Str("data", event.Data).
			Int64("chatId", event.ChatId).
			Msg("expected a digit in the callback payload")
		return
	}
	radius, err := strconv.Atoi(event.Data)
	if err != nil || radius <= 0 {
		log.Warn().Str("data", event.Data).Msg("unusable radius payload")
		return
	}
	username := event.User.UserName
	if username == "" {
		c.sendMessage(event.ChatId, msgNeedUsername, false)
		return
	}
	c.updateMember(username, event.User, func(m *models.Member) {
		m.TravelRadius = radius
	})
	c.logMeetup(fmt.Sprintf("user %s selected %v km radius", username, radius))
	log.Info().Err(c.dispatcher.Dispatch(models.TelegramEditMessage, models.TelegramEditMessageEvent{
		ChatId:     event.ChatId,
		MessageId:  event.MessageId,
		Message:    fmt.Sprintf(msgRadiusSelected, radius),
		CallbackId: event.CallbackId,
	})).Send()
	log.Info().Err(c.dispatcher.Dispatch(models.TelegramRequestLocation, models.TelegramRequestLocationEvent{
		ChatId:  event.ChatId,
		Message: msgRequestLocation,
	})).Send()
}

// LocationUpdate stores the coordinates and, for a fully set up member,
// answers with the list of org members within the travel radius.
func (c *Client) LocationUpdate(event models.MeetupLocationUpdateEvent) {
	username := event.User.UserName
	if username == "" {
		c.sendMessage(event.ChatId, msgNeedUsername, false)
		return
	}
	location := event.Location
	member := c.updateMember(username, event.User, func(m *models.Member) {
		m.Location = &location
	})
	if !member.Complete() {
		c.sendMessage(event.ChatId, msgSetupFirst, true)
		return
	}
	c.logMeetup(fmt.Sprintf("user %s updated location", username))
	c.whoIsAround(event.ChatId, member)
}

func (c *Client) whoIsAround(chatId int64, member models.Member) {
	org, err := c.OrgRep.GetByCode(member.SelectedOrg)
	if err != nil {
		log.Error().Err(err).Str("org", member.SelectedOrg).Msg("organization lookup failed")
		c.sendMessage(chatId, msgNoOneAround, true)
		return
	}
	others, err := c.MemberRep.GetByUsernames(org.Members)
	if err != nil {
		log.Error().Err(err).Str("org", org.Code).Msg("members lookup failed")
		c.sendMessage(chatId, msgNoOneAround, true)
		return
	}
	var nearby []string
	for _, other := range others {
		if other.Username == member.Username ||
			other.SelectedOrg != member.SelectedOrg ||
			!other.Complete() {
			continue
		}
		distance := geo.Km(
			member.Location.Latitude, member.Location.Longitude,
			other.Location.Latitude, other.Location.Longitude)
		if distance <= float64(member.TravelRadius) {
			nearby = append(nearby, "@"+other.Username)
		}
	}
	if len(nearby) > 0 {
		c.logMeetup(fmt.Sprintf("user %s found nearby: %s", member.Username, strings.Join(nearby, ", ")))
		c.sendMessage(chatId, fmt.Sprintf(msgMembersNearby, strings.Join(nearby, ", ")), true)
	} else {
		c.sendMessage(chatId, msgNoOneAround, true)
	}
}

// PurgeStaleMembers drops member records created before UTC midnight of the
// current day, keeping only members who checked in today.
func (c *Client) PurgeStaleMembers() (int64, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := c.MemberRep.RemoveCreatedBefore(midnight)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		c.logMeetup(fmt.Sprintf("purged %v stale members", count))
	}
	return count, nil
}

// SyncOrganizations drops organizations that are no longer authorized and
// materializes empty rosters for authorized ones that do not exist yet.
func (c *Client) SyncOrganizations() error {
	removed, err := c.OrgRep.RemoveNotIn(c.authorizedOrgs)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.logMeetup(fmt.Sprintf("removed %v unauthorized organizations", removed))
	}
	for _, code := range c.authorizedOrgs {
		if _, err := c.OrgRep.GetByCode(code); err != nil {
			if _, err := c.OrgRep.Upsert(code, []string{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) authorized(code string) bool {
	for _, org := range c.authorizedOrgs {
		if org == code {
			return true
		}
	}
	return false
}

// updateMember merges a mutation into the stored member record, creating it
// when absent, and persists the result.
func (c *Client) updateMember(username string, user models.TelegramUser, mutate func(*models.Member)) models.Member {
	member, err := c.MemberRep.GetByUsername(username)
	if err != nil {
		member = models.Member{Username: username}
	}
	member.TelegramUser = user
	mutate(&member)
	member, err = c.MemberRep.Upsert(member)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("member upsert failed")
	}
	return member
}

func (c *Client) sendMessage(chatId int64, message string, removeKeyboard bool) {
	log.Info().Err(c.dispatcher.Dispatch(models.TelegramSendMessage, models.TelegramSendMessageEvent{
		ChatId:         chatId,
		Message:        message,
		RemoveKeyboard: removeKeyboard,
	})).Send()
}

func (c *Client) sendRadiusSelector(chatId int64, org string) {
	log.Info().Err(c.dispatcher.Dispatch(models.TelegramSendRadiusSelector, models.TelegramSendRadiusSelectorEvent{
		ChatId:  chatId,
		Org:     org,
		Options: c.radiusOptions,
	})).Send()
}

func (c *Client) logMeetup(data string) {
	c.dispatcher.Dispatch(models.LogToFile, models.FileLoggerEvent{
		Src:  models.FileLogMeetup,
		Data: data,
	})
}

func isDigits(data string) bool {
	if data == "" {
		return false
	}
	for _, r := range data {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
