package meetup

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/models"
)

var errNotFound = errors.New("not found")

type fakeMemberRepo struct {
	mu            sync.Mutex
	members       map[string]models.Member
	removedBefore time.Time
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string]models.Member)}
}

func (f *fakeMemberRepo) Upsert(member models.Member) (models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member.CreatedDttm = time.Now().UTC()
	f.members[member.Username] = member
	return member, nil
}

func (f *fakeMemberRepo) GetByUsername(username string) (models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[username]
	if !ok {
		return models.Member{}, errNotFound
	}
	return member, nil
}

func (f *fakeMemberRepo) GetByUsernames(usernames []string) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Member
	for _, username := range usernames {
		if member, ok := f.members[username]; ok {
			result = append(result, member)
		}
	}
	return result, nil
}

func (f *fakeMemberRepo) GetAll() ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Member
	for _, member := range f.members {
		result = append(result, member)
	}
	return result, nil
}

func (f *fakeMemberRepo) RemoveCreatedBefore(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedBefore = cutoff
	var count int64
	for username, member := range f.members {
		if member.CreatedDttm.Before(cutoff) {
			delete(f.members, username)
			count++
		}
	}
	return count, nil
}

func (f *fakeMemberRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.members)), nil
}

type fakeOrgRepo struct {
	mu   sync.Mutex
	orgs map[string]models.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[string]models.Organization)}
}

func (f *fakeOrgRepo) Upsert(code string, members []string) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if members == nil {
		members = []string{}
	}
	org := models.Organization{Code: code, Members: members}
	f.orgs[code] = org
	return org, nil
}

func (f *fakeOrgRepo) GetByCode(code string) (models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	org, ok := f.orgs[code]
	if !ok {
		return models.Organization{}, errNotFound
	}
	return org, nil
}

func (f *fakeOrgRepo) GetAll() ([]models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Organization
	for _, org := range f.orgs {
		result = append(result, org)
	}
	return result, nil
}

func (f *fakeOrgRepo) RemoveNotIn(codes []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keep := make(map[string]bool, len(codes))
	for _, code := range codes {
		keep[code] = true
	}
	var count int64
	for code := range f.orgs {
		if !keep[code] {
			delete(f.orgs, code)
			count++
		}
	}
	return count, nil
}

func (f *fakeOrgRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.orgs)), nil
}

type captured struct {
	name  models.EventName
	event interface{}
}

type captureListener struct {
	events chan captured
}

func (c captureListener) Listen(name models.EventName, event interface{}) {
	c.events <- captured{name: name, event: event}
}

func newTestClient(t *testing.T) (*Client, *fakeMemberRepo, *fakeOrgRepo, chan captured) {
	t.Helper()
	dispatcher := mediator.NewDispatcher()
	events := make(chan captured, 100)
	if err := dispatcher.Register(captureListener{events: events}, models.TelegramEvents...); err != nil {
		t.Fatalf("register capture listener: %v", err)
	}
	memberRep := newFakeMemberRepo()
	orgRep := newFakeOrgRepo()
	client := &Client{
		MemberRep:      memberRep,
		OrgRep:         orgRep,
		dispatcher:     dispatcher,
		authorizedOrgs: []string{"PYTHONISTS", "GOPHERS"},
		radiusOptions:  []int{1, 2, 3, 4},
	}
	return client, memberRep, orgRep, events
}

func collect(t *testing.T, events chan captured, count int) map[models.EventName]interface{} {
	t.Helper()
	result := make(map[models.EventName]interface{}, count)
	for i := 0; i < count; i++ {
		select {
		case e := <-events:
			result[e.name] = e.event
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %d events, got %d", count, len(result))
		}
	}
	return result
}

func expectNothing(t *testing.T, events chan captured) {
	t.Helper()
	select {
	case e := <-events:
		t.Fatalf("unexpected event %s: %+v", e.name, e.event)
	case <-time.After(200 * time.Millisecond):
	}
}

func user(name string) models.TelegramUser {
	return models.TelegramUser{ID: 42, UserName: name, FirstName: "Test"}
}

func TestJoinOrgRequiresUsername(t *testing.T) {
	client, _, _, events := newTestClient(t)
	client.JoinOrg(models.MeetupJoinOrgEvent{ChatId: 1, User: models.TelegramUser{ID: 7}, Text: "pythonists"})
	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok {
		t.Fatalf("expected send message event, got %+v", got)
	}
	if msg.Message != msgNeedUsername {
		t.Fatalf("unexpected message: %s", msg.Message)
	}
}

func TestJoinOrgUnauthorized(t *testing.T) {
	client, _, orgRep, events := newTestClient(t)
	client.JoinOrg(models.MeetupJoinOrgEvent{ChatId: 1, User: user("alice"), Text: "strangers"})
	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok {
		t.Fatalf("expected send message event, got %+v", got)
	}
	if msg.Message != msgAskOrg {
		t.Fatalf("unexpected message: %s", msg.Message)
	}
	if count, _ := orgRep.Count(); count != 0 {
		t.Fatalf("unauthorized org must not be stored, have %d orgs", count)
	}
}

func TestJoinOrgAddsMemberToRoster(t *testing.T) {
	client, memberRep, orgRep, events := newTestClient(t)
	client.JoinOrg(models.MeetupJoinOrgEvent{ChatId: 1, User: user("alice"), Text: " pythonists "})

	got := collect(t, events, 2)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok {
		t.Fatalf("expected send message event, got %+v", got)
	}
	if !strings.Contains(msg.Message, "PYTHONISTS") {
		t.Fatalf("confirmation must name the org: %s", msg.Message)
	}
	selector, ok := got[models.TelegramSendRadiusSelector].(models.TelegramSendRadiusSelectorEvent)
	if !ok {
		t.Fatalf("expected radius selector event, got %+v", got)
	}
	if selector.Org != "PYTHONISTS" || len(selector.Options) != 4 {
		t.Fatalf("unexpected selector: %+v", selector)
	}

	org, err := orgRep.GetByCode("PYTHONISTS")
	if err != nil || !org.HasMember("alice") {
		t.Fatalf("alice must be on the roster: %+v, %v", org, err)
	}
	member, err := memberRep.GetByUsername("alice")
	if err != nil || member.SelectedOrg != "PYTHONISTS" {
		t.Fatalf("member record missing org: %+v, %v", member, err)
	}
}

func TestUserStartPromptsForOrg(t *testing.T) {
	client, _, _, events := newTestClient(t)
	client.UserStart(models.MeetupUserStartEvent{ChatId: 1, User: user("alice")})
	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok || msg.Message != msgAskOrg {
		t.Fatalf("expected org prompt, got %+v", got)
	}
}

func TestUserStartResumesWithRadiusSelector(t *testing.T) {
	client, memberRep, _, events := newTestClient(t)
	memberRep.Upsert(models.Member{Username: "alice", SelectedOrg: "GOPHERS"})
	client.UserStart(models.MeetupUserStartEvent{ChatId: 1, User: user("alice")})
	got := collect(t, events, 1)
	selector, ok := got[models.TelegramSendRadiusSelector].(models.TelegramSendRadiusSelectorEvent)
	if !ok || selector.Org != "GOPHERS" {
		t.Fatalf("expected radius selector for GOPHERS, got %+v", got)
	}
}

func TestUserStartReattachesRosterMember(t *testing.T) {
	client, memberRep, orgRep, events := newTestClient(t)
	orgRep.Upsert("GOPHERS", []string{"alice"})
	client.UserStart(models.MeetupUserStartEvent{ChatId: 1, User: user("alice")})
	got := collect(t, events, 1)
	selector, ok := got[models.TelegramSendRadiusSelector].(models.TelegramSendRadiusSelectorEvent)
	if !ok || selector.Org != "GOPHERS" {
		t.Fatalf("expected radius selector for GOPHERS, got %+v", got)
	}
	member, err := memberRep.GetByUsername("alice")
	if err != nil || member.SelectedOrg != "GOPHERS" {
		t.Fatalf("member must be re-attached to the org: %+v, %v", member, err)
	}
}

func TestRadiusSelectedIgnoresNonDigit(t *testing.T) {
	client, memberRep, _, events := newTestClient(t)
	client.RadiusSelected(models.MeetupRadiusSelectedEvent{
		ChatId: 1, MessageId: 10, User: user("alice"), Data: "change_org",
	})
	expectNothing(t, events)
	if count, _ := memberRep.Count(); count != 0 {
		t.Fatal("non-digit payload must not touch member records")
	}
}

func TestRadiusSelectedStoresRadius(t *testing.T) {
	client, memberRep, _, events := newTestClient(t)
	memberRep.Upsert(models.Member{Username: "alice", SelectedOrg: "GOPHERS"})
	client.RadiusSelected(models.MeetupRadiusSelectedEvent{
		ChatId: 1, MessageId: 10, CallbackId: "cb1", User: user("alice"), Data: "3",
	})
	got := collect(t, events, 2)
	edit, ok := got[models.TelegramEditMessage].(models.TelegramEditMessageEvent)
	if !ok {
		t.Fatalf("expected edit message event, got %+v", got)
	}
	if edit.MessageId != 10 || edit.CallbackId != "cb1" || !strings.Contains(edit.Message, "3 km") {
		t.Fatalf("unexpected edit event: %+v", edit)
	}
	if _, ok := got[models.TelegramRequestLocation].(models.TelegramRequestLocationEvent); !ok {
		t.Fatalf("expected location request event, got %+v", got)
	}
	member, err := memberRep.GetByUsername("alice")
	if err != nil || member.TravelRadius != 3 {
		t.Fatalf("radius not stored: %+v, %v", member, err)
	}
}

func TestLocationUpdateIncompleteMember(t *testing.T) {
	client, memberRep, _, events := newTestClient(t)
	client.LocationUpdate(models.MeetupLocationUpdateEvent{
		ChatId:   1,
		User:     user("alice"),
		Location: models.Location{Latitude: 55.0, Longitude: 37.0},
	})
	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok || msg.Message != msgSetupFirst {
		t.Fatalf("expected setup prompt, got %+v", got)
	}
	member, err := memberRep.GetByUsername("alice")
	if err != nil || member.Location == nil {
		t.Fatalf("location must be stored anyway: %+v, %v", member, err)
	}
}

func TestLocationUpdateFindsNearbyMembers(t *testing.T) {
	client, memberRep, orgRep, events := newTestClient(t)
	orgRep.Upsert("GOPHERS", []string{"alice", "bob", "carol", "dave"})
	memberRep.Upsert(models.Member{Username: "alice", SelectedOrg: "GOPHERS", TravelRadius: 2})
	memberRep.Upsert(models.Member{
		Username: "bob", SelectedOrg: "GOPHERS", TravelRadius: 2,
		Location: &models.Location{Latitude: 55.009, Longitude: 37.0}, // ~1 km away
	})
	memberRep.Upsert(models.Member{
		Username: "carol", SelectedOrg: "GOPHERS", TravelRadius: 2,
		Location: &models.Location{Latitude: 55.45, Longitude: 37.0}, // ~50 km away
	})
	memberRep.Upsert(models.Member{Username: "dave", SelectedOrg: "GOPHERS"}) // no location yet

	client.LocationUpdate(models.MeetupLocationUpdateEvent{
		ChatId:   1,
		User:     user("alice"),
		Location: models.Location{Latitude: 55.0, Longitude: 37.0},
	})

	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok {
		t.Fatalf("expected send message event, got %+v", got)
	}
	if !strings.Contains(msg.Message, "@bob") {
		t.Fatalf("bob is within 2 km and must be listed: %s", msg.Message)
	}
	if strings.Contains(msg.Message, "@carol") || strings.Contains(msg.Message, "@dave") ||
		strings.Contains(msg.Message, "@alice") {
		t.Fatalf("only nearby complete members belong in the answer: %s", msg.Message)
	}
	if !msg.RemoveKeyboard {
		t.Fatal("the location keyboard must be removed with the answer")
	}
}

func TestLocationUpdateNoOneAround(t *testing.T) {
	client, memberRep, orgRep, events := newTestClient(t)
	orgRep.Upsert("GOPHERS", []string{"alice"})
	memberRep.Upsert(models.Member{Username: "alice", SelectedOrg: "GOPHERS", TravelRadius: 2})

	client.LocationUpdate(models.MeetupLocationUpdateEvent{
		ChatId:   1,
		User:     user("alice"),
		Location: models.Location{Latitude: 55.0, Longitude: 37.0},
	})

	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok || msg.Message != msgNoOneAround {
		t.Fatalf("expected the no-one-around answer, got %+v", got)
	}
	if !msg.RemoveKeyboard {
		t.Fatal("the location keyboard must be removed with the answer")
	}
}

func TestPurgeStaleMembersCutoff(t *testing.T) {
	client, memberRep, _, _ := newTestClient(t)
	if _, err := client.PurgeStaleMembers(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !memberRep.removedBefore.Equal(midnight) {
		t.Fatalf("cutoff = %v, expected UTC midnight %v", memberRep.removedBefore, midnight)
	}
}

func TestSyncOrganizations(t *testing.T) {
	client, _, orgRep, _ := newTestClient(t)
	orgRep.Upsert("OLDTIMERS", []string{"zed"})
	orgRep.Upsert("PYTHONISTS", []string{"alice"})

	if err := client.SyncOrganizations(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := orgRep.GetByCode("OLDTIMERS"); err == nil {
		t.Fatal("unauthorized org must be removed")
	}
	kept, err := orgRep.GetByCode("PYTHONISTS")
	if err != nil || !kept.HasMember("alice") {
		t.Fatalf("authorized org must keep its roster: %+v, %v", kept, err)
	}
	materialized, err := orgRep.GetByCode("GOPHERS")
	if err != nil || len(materialized.Members) != 0 {
		t.Fatalf("missing authorized org must appear with an empty roster: %+v, %v", materialized, err)
	}
}

func TestHelpMentionsRetention(t *testing.T) {
	client, _, _, events := newTestClient(t)
	client.Help(models.MeetupUserHelpEvent{ChatId: 1})
	got := collect(t, events, 1)
	msg, ok := got[models.TelegramSendMessage].(models.TelegramSendMessageEvent)
	if !ok || !strings.Contains(msg.Message, "24 hours") {
		t.Fatalf("help must state the retention window, got %+v", got)
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{
		"1":          true,
		"42":         true,
		"":           false,
		"1a":         false,
		"change_org": false,
		"-1":         false,
	}
	for data, expected := range cases {
		if isDigits(data) != expected {
			t.Fatalf("isDigits(%q) != %v", data, expected)
		}
	}
}
