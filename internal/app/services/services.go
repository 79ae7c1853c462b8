package services

// Services defined in this package:
// - EstablishmentService: tenants
// - UserService: users of an establishment
// - FormationService: formations, their modules and enrollments
// - ScheduleService: schedules and timetable slots
// - MessagingService: immediate and scheduled messages, inbox
// - Dispatcher: delivery of scheduled messages once due
// - AssignmentService: assignments, submissions and grading
// - MeetingService: meetings with an external link
// - VirtualClassService: video rooms attached to formations
// - SignalingService: WebRTC signaling relay between the peers of a class
