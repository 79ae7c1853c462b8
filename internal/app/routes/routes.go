package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/controllers"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/middleware"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

// Controllers groups the HTTP handlers mounted under /api/v1
type Controllers struct {
	Establishment *controllers.EstablishmentController
	User          *controllers.UserController
	Formation     *controllers.FormationController
	Schedule      *controllers.ScheduleController
	Message       *controllers.MessageController
	Assignment    *controllers.AssignmentController
	Meeting       *controllers.MeetingController
	VirtualClass  *controllers.VirtualClassController
	Realtime      *realtime.Handler
}

// SetupRouter configures all application routes. rateLimiter may be nil.
func SetupRouter(
	router *gin.Engine,
	ctrl Controllers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	if rateLimiter != nil {
		authenticated.Use(rateLimiter.Handler())
	}

	superAdmin := authMiddleware.RoleRequired(models.RoleSuperAdmin)
	admins := authMiddleware.RoleRequired(models.RoleSuperAdmin, models.RoleAdmin)
	staff := authMiddleware.RoleRequired(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTrainer)

	// Realtime events for the caller (websocket upgrade, token in query string)
	authenticated.GET("/ws", ctrl.Realtime.HandleConnection)

	// Own profile and timetable
	authenticated.GET("/me", ctrl.User.GetMe)
	authenticated.GET("/me/slots", ctrl.Schedule.MySlots)

	establishments := authenticated.Group("/establishments")
	{
		establishments.GET("/me", ctrl.Establishment.GetOwnEstablishment)

		establishmentsSuperAdmin := establishments.Group("", superAdmin)
		{
			establishmentsSuperAdmin.POST("", ctrl.Establishment.CreateEstablishment)
			establishmentsSuperAdmin.GET("", ctrl.Establishment.ListEstablishments)
			establishmentsSuperAdmin.GET("/:id", ctrl.Establishment.GetEstablishment)
			establishmentsSuperAdmin.PATCH("/:id", ctrl.Establishment.UpdateEstablishment)
			establishmentsSuperAdmin.DELETE("/:id", ctrl.Establishment.DeactivateEstablishment)
		}
	}

	users := authenticated.Group("/users")
	{
		users.GET("", staff, ctrl.User.ListUsers)
		users.GET("/:id", ctrl.User.GetUser)

		usersAdmin := users.Group("", admins)
		{
			usersAdmin.POST("", ctrl.User.CreateUser)
			usersAdmin.PATCH("/:id", ctrl.User.UpdateUser)
			usersAdmin.DELETE("/:id", ctrl.User.DeactivateUser)
		}
	}

	// Formation sub-resources share the :id parameter of the formation
	formations := authenticated.Group("/formations")
	{
		formations.GET("", ctrl.Formation.ListFormations)
		formations.GET("/:id", ctrl.Formation.GetFormation)
		formations.GET("/:id/modules", ctrl.Formation.ListModules)
		formations.GET("/:id/participants", ctrl.Formation.ListParticipants)
		formations.GET("/:id/schedules", ctrl.Schedule.ListSchedules)
		formations.GET("/:id/slots", ctrl.Schedule.FormationSlots)
		formations.GET("/:id/assignments", ctrl.Assignment.ListAssignments)
		formations.GET("/:id/virtual-classes", ctrl.VirtualClass.ListVirtualClasses)

		formationsStaff := formations.Group("", staff)
		{
			formationsStaff.POST("", ctrl.Formation.CreateFormation)
			formationsStaff.PATCH("/:id", ctrl.Formation.UpdateFormation)
			formationsStaff.DELETE("/:id", ctrl.Formation.DeleteFormation)
			formationsStaff.POST("/:id/modules", ctrl.Formation.AddModule)
			formationsStaff.PUT("/:id/modules/order", ctrl.Formation.ReorderModules)
			formationsStaff.POST("/:id/participants", ctrl.Formation.Enroll)
			formationsStaff.DELETE("/:id/participants/:userId", ctrl.Formation.Unenroll)
		}
	}

	modules := authenticated.Group("/modules", staff)
	{
		modules.PATCH("/:moduleId", ctrl.Formation.UpdateModule)
		modules.DELETE("/:moduleId", ctrl.Formation.DeleteModule)
	}

	schedules := authenticated.Group("/schedules")
	{
		schedules.GET("/:id", ctrl.Schedule.GetSchedule)
		schedules.GET("/:id/slots", ctrl.Schedule.ListSlots)

		schedulesStaff := schedules.Group("", staff)
		{
			schedulesStaff.POST("", ctrl.Schedule.CreateSchedule)
			schedulesStaff.DELETE("/:id", ctrl.Schedule.DeleteSchedule)
			schedulesStaff.POST("/:id/slots", ctrl.Schedule.AddSlot)
		}
	}

	slots := authenticated.Group("/slots", staff)
	{
		slots.PATCH("/:slotId", ctrl.Schedule.UpdateSlot)
		slots.DELETE("/:slotId", ctrl.Schedule.DeleteSlot)
	}

	messages := authenticated.Group("/messages")
	{
		messages.POST("", ctrl.Message.SendMessage)
		messages.GET("/inbox", ctrl.Message.Inbox)
		messages.GET("/sent", ctrl.Message.Sent)
		messages.GET("/unread-count", ctrl.Message.UnreadCount)
		messages.GET("/:id", ctrl.Message.GetMessage)
		messages.POST("/:id/read", ctrl.Message.MarkRead)
		messages.DELETE("/:id", ctrl.Message.CancelMessage)
	}

	assignments := authenticated.Group("/assignments")
	{
		assignments.GET("/:id", ctrl.Assignment.GetAssignment)
		assignments.GET("/:id/submission", ctrl.Assignment.MySubmission)
		assignments.PUT("/:id/submission", ctrl.Assignment.Submit)
		assignments.POST("/:id/attachments", ctrl.Assignment.UploadAttachment)

		assignmentsStaff := assignments.Group("", staff)
		{
			assignmentsStaff.POST("", ctrl.Assignment.CreateAssignment)
			assignmentsStaff.PATCH("/:id", ctrl.Assignment.UpdateAssignment)
			assignmentsStaff.DELETE("/:id", ctrl.Assignment.DeleteAssignment)
			assignmentsStaff.GET("/:id/submissions", ctrl.Assignment.ListSubmissions)
		}
	}

	authenticated.POST("/submissions/:submissionId/grade", staff, ctrl.Assignment.Grade)

	meetings := authenticated.Group("/meetings")
	{
		meetings.GET("", ctrl.Meeting.ListMeetings)
		meetings.GET("/:id", ctrl.Meeting.GetMeeting)

		meetingsStaff := meetings.Group("", staff)
		{
			meetingsStaff.POST("", ctrl.Meeting.CreateMeeting)
			meetingsStaff.PATCH("/:id", ctrl.Meeting.UpdateMeeting)
			meetingsStaff.DELETE("/:id", ctrl.Meeting.DeleteMeeting)
		}
	}

	virtualClasses := authenticated.Group("/virtual-classes")
	{
		virtualClasses.GET("/:id", ctrl.VirtualClass.GetVirtualClass)
		virtualClasses.POST("/:id/join", ctrl.VirtualClass.JoinVirtualClass)
		virtualClasses.POST("/:id/leave", ctrl.VirtualClass.LeaveVirtualClass)
		virtualClasses.POST("/:id/heartbeat", ctrl.VirtualClass.Heartbeat)
		virtualClasses.GET("/:id/peers", ctrl.VirtualClass.ListPeers)
		virtualClasses.POST("/:id/signals", ctrl.VirtualClass.SendSignal)
		virtualClasses.GET("/:id/signals", ctrl.VirtualClass.PendingSignals)

		virtualClassesStaff := virtualClasses.Group("", staff)
		{
			virtualClassesStaff.POST("", ctrl.VirtualClass.CreateVirtualClass)
			virtualClassesStaff.DELETE("/:id", ctrl.VirtualClass.DeleteVirtualClass)
		}
	}
}
